// Package submissionsubmit реализует HTTP-обработчик сдачи ответов теста.
package submissionsubmit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики сдачи ответов.
type Service interface {
	Submit(ctx context.Context, userID, submissionID string, req models.DummySubmit) error
}

// Handler управляет HTTP-запросами сдачи ответов.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Сдать ответы попытки
// @Description Переводит открытую попытку в submitted с сохранением ответов.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор попытки"
// @Param request body models.DummySubmit true "Ответы в произвольном JSON"
// @Success 200 {object} response.Response "Ответы приняты"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор или JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Попытка не найдена"
// @Failure 409 {object} response.ErrorResponse "Попытка уже сдана"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при сдаче ответов"
// @Security ApiKeyAuth
// @Router /submissions/{id}/submit [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.submit"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	submissionID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(submissionID); err != nil {
		log.Error("invalid submission id", slog.String("submission_id", submissionID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid submission id"))
		return
	}

	var req models.DummySubmit
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.Submit(r.Context(), userID, submissionID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("submission is not open", slog.String("submission_id", submissionID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("submission already submitted"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("submission not found", slog.String("submission_id", submissionID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("submission not found"))
		default:
			log.Error("failed to submit answers", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not submit answers"))
		}
		return
	}

	log.Info("answers submitted", slog.String("submission_id", submissionID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submitted": true,
	}))
}
