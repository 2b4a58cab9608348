package courselist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики каталога курсов.
type Service interface {
	ListPublished(ctx context.Context, limit, offset int) ([]*models.Course, error)
}

// Handler управляет HTTP-запросами каталога опубликованных курсов.
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
// @Summary Каталог опубликованных курсов
// @Tags Courses
// @Produce json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} response.Response "Страница каталога"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении каталога"
// @Router /courses [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	courses, err := h.service.ListPublished(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list courses", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list courses"))
		return
	}

	log.Info("courses listed", slog.Int("count", len(courses)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(courses),
		"courses":    courses,
	}))
}
