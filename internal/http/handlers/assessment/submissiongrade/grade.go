// Package submissiongrade реализует HTTP-обработчик оценки попытки.
//
// Оценивает преподаватель курса, которому принадлежит тест. Чужая
// попытка выглядит несуществующей.
package submissiongrade

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

// Service описывает интерфейс бизнес-логики оценки попытки.
type Service interface {
	Grade(ctx context.Context, instructorID, submissionID string, req models.DummyGrade) error
}

// Handler управляет HTTP-запросами оценки попытки.
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
// @Summary Оценить попытку
// @Description Выставляет балл сданной попытке и переводит её в graded.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор попытки"
// @Param request body models.DummyGrade true "Балл от 0 до 100"
// @Success 200 {object} response.Response "Балл выставлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор или JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Попытка не найдена"
// @Failure 409 {object} response.ErrorResponse "Попытка не сдана"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при оценке"
// @Security ApiKeyAuth
// @Router /submissions/{id}/grade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.grade"

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

	var req models.DummyGrade
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

	instructorID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || instructorID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	err := h.service.Grade(r.Context(), instructorID, submissionID, req)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("submission is not submitted", slog.String("submission_id", submissionID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("submission is not submitted"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("submission not found", slog.String("submission_id", submissionID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("submission not found"))
		default:
			log.Error("failed to grade submission", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not grade submission"))
		}
		return
	}

	log.Info("submission graded", slog.String("submission_id", submissionID),
		slog.Float64("score", req.Score))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"graded": true,
	}))
}
