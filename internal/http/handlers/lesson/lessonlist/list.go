package lessonlist

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

// Service описывает интерфейс бизнес-логики списка уроков.
type Service interface {
	List(ctx context.Context, viewerID, courseID string) ([]*models.Lesson, error)
}

// Handler управляет HTTP-запросами списка уроков курса.
// Анонимный зритель видит только превью, записанный и владелец видят всё.
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
// @Summary Уроки курса
// @Description Возвращает уроки курса. Без записи на курс видны только уроки-превью.
// @Tags Lessons
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Список уроков"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении уроков"
// @Router /courses/{id}/lessons [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lesson.list"

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

	viewerID, _ := r.Context().Value(middlewarectx.UserID).(string)

	lessons, err := h.service.List(r.Context(), viewerID, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("course not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
			return
		}
		log.Error("failed to list lessons", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list lessons"))
		return
	}

	log.Info("lessons listed", slog.Int("count", len(lessons)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(lessons),
		"lessons":    lessons,
	}))
}
