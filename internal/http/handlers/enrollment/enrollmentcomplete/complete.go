package enrollmentcomplete

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
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики завершения курса.
type Service interface {
	Complete(ctx context.Context, enrollmentID, userID string) error
}

// Handler управляет HTTP-запросами завершения курса пользователем.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Завершить курс
// @Description Переводит активную запись в состояние completed и фиксирует прогресс 100.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Идентификатор записи"
// @Success 200 {object} response.Response "Курс завершён"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Запись не активна"
// @Security ApiKeyAuth
// @Router /enrollments/{id}/complete [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.complete"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	enrollmentID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(enrollmentID); err != nil {
		log.Error("invalid enrollment id in url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid enrollment id"))
		return
	}

	userID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || userID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Complete(r.Context(), enrollmentID, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidTransition):
			log.Info("enrollment not active", slog.String("enrollment_id", enrollmentID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("enrollment is not active"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("enrollment not found", slog.String("enrollment_id", enrollmentID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("enrollment not found"))
		default:
			log.Error("failed to complete enrollment", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not complete enrollment"))
		}
		return
	}

	log.Info("enrollment completed", slog.String("enrollment_id", enrollmentID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"completed": true,
	}))
}
