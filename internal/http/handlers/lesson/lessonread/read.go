package lessonread

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
	lessonservice "github.com/edlatam/lms-platform/internal/services/lesson"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики чтения урока.
type Service interface {
	Get(ctx context.Context, viewerID, lessonID string) (*models.Lesson, error)
}

// Handler управляет HTTP-запросами чтения урока.
// Полный урок доступен записанным на курс и владельцу, превью доступно всем.
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
// @Summary Урок
// @Description Возвращает урок. Не превью доступен только записанным на курс и владельцу.
// @Tags Lessons
// @Produce json
// @Param id path string true "Идентификатор урока"
// @Success 200 {object} response.Response "Урок"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 403 {object} response.ErrorResponse "Нет записи на курс"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении урока"
// @Router /lessons/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.lesson.read"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	lessonID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(lessonID); err != nil {
		log.Error("invalid lesson id in url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid lesson id"))
		return
	}

	viewerID, _ := r.Context().Value(middlewarectx.UserID).(string)

	lesson, err := h.service.Get(r.Context(), viewerID, lessonID)
	if err != nil {
		switch {
		case errors.Is(err, lessonservice.ErrNotEnrolled):
			log.Info("full lesson without enrollment", slog.String("lesson_id", lessonID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("enrollment required"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("lesson not found", slog.String("lesson_id", lessonID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("lesson not found"))
		default:
			log.Error("failed to read lesson", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not read lesson"))
		}
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"lesson": lesson,
	}))
}
