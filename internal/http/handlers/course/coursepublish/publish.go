package coursepublish

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

// Service описывает интерфейс бизнес-логики публикации курса.
type Service interface {
	Publish(ctx context.Context, instructorID, courseID string) error
}

// Handler управляет HTTP-запросами публикации курса.
// Повторная публикация не является ошибкой.
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
// @Summary Опубликовать курс
// @Description Делает курс видимым в каталоге. Повторная публикация идемпотентна.
// @Tags Courses
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Курс опубликован"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при публикации"
// @Security ApiKeyAuth
// @Router /courses/{id}/publish [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.publish"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	courseID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(courseID); err != nil {
		log.Error("invalid course id in url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid course id"))
		return
	}

	instructorID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || instructorID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Publish(r.Context(), instructorID, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("course not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
			return
		}
		log.Error("failed to publish course", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not publish course"))
		return
	}

	log.Info("course published", slog.String("course_id", courseID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"published": true,
	}))
}
