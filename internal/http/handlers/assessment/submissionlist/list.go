// Package submissionlist реализует HTTP-обработчик попыток пользователя по тесту.
package submissionlist

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
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики списка попыток.
type Service interface {
	ListMySubmissions(ctx context.Context, userID, quizID string) ([]*models.Submission, error)
}

// Handler управляет HTTP-запросами списка попыток.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Попытки пользователя по тесту
// @Description Возвращает попытки текущего пользователя по тесту, новые первыми.
// @Tags Assessments
// @Produce json
// @Param id path string true "Идентификатор теста"
// @Success 200 {object} response.Response "Список попыток"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Тест не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении попыток"
// @Security ApiKeyAuth
// @Router /quizzes/{id}/submissions [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.assessment.submissionlist"

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

	submissions, err := h.service.ListMySubmissions(r.Context(), userID, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("quiz not found", slog.String("quiz_id", quizID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("quiz not found"))
			return
		}
		log.Error("failed to list submissions", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list submissions"))
		return
	}

	log.Info("submissions listed", slog.Int("count", len(submissions)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"submissions": submissions,
	}))
}
