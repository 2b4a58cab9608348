package reviewcreate

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
	courseservice "github.com/edlatam/lms-platform/internal/services/course"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики отзывов о курсе.
type Service interface {
	CreateReview(ctx context.Context, userID, courseID string, req models.DummyReview) (string, error)
}

// Handler управляет HTTP-запросами создания отзыва о курсе.
// Отзыв доступен только записанному на курс пользователю.
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
// @Summary Оставить отзыв о курсе
// @Description Создает отзыв записанного на курс пользователя. Один отзыв на пользователя и курс.
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор курса"
// @Param request body models.DummyReview true "Оценка и комментарий"
// @Success 201 {object} response.Response "Отзыв создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет записи на курс"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 409 {object} response.ErrorResponse "Отзыв уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Security ApiKeyAuth
// @Router /courses/{id}/reviews [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.reviewcreate"

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

	var req models.DummyReview
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

	reviewID, err := h.service.CreateReview(r.Context(), userID, courseID, req)
	if err != nil {
		switch {
		case errors.Is(err, courseservice.ErrNotEnrolled):
			log.Info("review without enrollment", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error("enrollment required to review"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("course not found", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Info("review already exists", slog.String("course_id", courseID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("review already exists"))
		default:
			log.Error("failed to create review", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not create review"))
		}
		return
	}

	log.Info("review created", slog.String("review_id", reviewID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"review_id": reviewID,
	}))
}
