package enrollmentprogress

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

// Service описывает интерфейс бизнес-логики прогресса записи.
type Service interface {
	UpdateProgress(ctx context.Context, enrollmentID, userID string, req models.DummyProgress) (float64, error)
}

// Handler управляет HTTP-запросами обновления прогресса по курсу.
// Прогресс двигается только вперёд и только в активной записи.
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
// @Summary Обновить прогресс по курсу
// @Description Поднимает прогресс активной записи. Откат назад не выполняется и не является ошибкой.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор записи"
// @Param request body models.DummyProgress true "Новый прогресс, 0-100"
// @Success 200 {object} response.Response "Текущий прогресс"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Запись не найдена"
// @Failure 409 {object} response.ErrorResponse "Запись не активна"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /enrollments/{id}/progress [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.progress"

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

	var req models.DummyProgress
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

	progress, err := h.service.UpdateProgress(r.Context(), enrollmentID, userID, req)
	if err != nil {
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
			log.Error("failed to update progress", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not update progress"))
		}
		return
	}

	log.Info("progress updated", slog.String("enrollment_id", enrollmentID),
		slog.Float64("progress", progress))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"progress": progress,
	}))
}
