// Package submissionstart реализует HTTP-обработчик начала попытки теста.
package submissionstart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	assessmentservice "github.com/edlatam/lms-platform/internal/services/assessment"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики начала попытки.
type Service interface {
	StartSubmission(ctx context.Context, userID, quizID string) (string, error)
}

// Handler управляет HTTP-запросами начала попытки.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Начать попытку теста
// @Description Открывает попытку прохождения теста. У пользователя может быть не больше одной открытой попытки на тест.
// @Tags Assessments
// @Produce json
// @Param id path string true "Идентификатор теста"
// @Success 201 {object} response.Response "Попытка открыта"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет активной записи на курс"
// @Failure 404 {object} response.ErrorResponse "Тест не найден"
// @Failure 409 {object} response.ErrorResponse "Открытая попытка уже существует"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при открытии попытки"
// @Security ApiKeyAuth
// @Router /quizzes/{id}/submissions [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.submissionstart"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	quizID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(quizID); err != nil {
		log.Error("invalid quiz id", slog.String("quiz_id", quizID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid quiz id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	submissionID, err := h.service.StartSubmission(r.Context(), userID, quizID)
	if err != nil {
		switch {
		case errors.Is(err, assessmentservice.ErrNotEnrolled):
			log.Info("user not enrolled", slog.String("quiz_id", quizID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("enrollment required"))
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Info("open attempt already exists", slog.String("quiz_id", quizID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("open attempt already exists"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("quiz not found", slog.String("quiz_id", quizID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quiz not found"))
		default:
			log.Error("failed to start submission", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not start submission"))
		}
		return
	}

	log.Info("submission started", slog.String("submission_id", submissionID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submission_id": submissionID,
	}))
}
