package reviewlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики списка отзывов.
type Service interface {
	ListReviews(ctx context.Context, courseID string, limit, offset int) ([]*models.Review, error)
}

// Handler управляет HTTP-запросами списка отзывов о курсе.
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
// @Summary Отзывы о курсе
// @Tags Courses
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} response.Response "Страница отзывов"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении отзывов"
// @Router /courses/{id}/reviews [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.reviewlist"

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

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	reviews, err := h.service.ListReviews(r.Context(), courseID, limit, offset)
	if err != nil {
		log.Error("failed to list reviews", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list reviews"))
		return
	}

	log.Info("reviews listed", slog.Int("count", len(reviews)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(reviews),
		"reviews":    reviews,
	}))
}
