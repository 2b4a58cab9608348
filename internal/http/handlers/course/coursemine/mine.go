package coursemine

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Service описывает интерфейс бизнес-логики списка курсов преподавателя.
type Service interface {
	ListMine(ctx context.Context, instructorID string, limit, offset int) ([]*models.Course, error)
}

// Handler управляет HTTP-запросами списка собственных курсов преподавателя,
// включая черновики.
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
// @Summary Курсы текущего преподавателя
// @Tags Courses
// @Produce json
// @Param limit query int false "Размер страницы, по умолчанию 20"
// @Param offset query int false "Смещение, по умолчанию 0"
// @Success 200 {object} response.Response "Список курсов с черновиками"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при чтении списка"
// @Security ApiKeyAuth
// @Router /courses/mine [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.mine"

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

	instructorID, ok := r.Context().Value(middlewarectx.UserID).(string)
	if !ok || instructorID == "" {
		log.Error("user id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	courses, err := h.service.ListMine(r.Context(), instructorID, limit, offset)
	if err != nil {
		log.Error("failed to list own courses", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("could not list courses"))
		return
	}

	log.Info("own courses listed", slog.Int("count", len(courses)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"list_count": len(courses),
		"courses":    courses,
	}))
}
