package courseread

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

// Service описывает интерфейс бизнес-логики чтения курса.
type Service interface {
	Get(ctx context.Context, courseID, viewerID string) (*models.Course, error)
}

// Handler управляет HTTP-запросами чтения карточки курса.
// Черновик виден только владельцу, для остальных курс отсутствует.
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
// @Summary Карточка курса
// @Description Возвращает опубликованный курс. Черновик возвращается только его владельцу.
// @Tags Courses
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Карточка курса"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении курса"
// @Router /courses/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.read"

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

	course, err := h.service.Get(r.Context(), courseID, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("course not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
			return
		}
		log.Error("failed to read course", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not read course"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"course": course,
		"rating": course.Rating(),
	}))
}
