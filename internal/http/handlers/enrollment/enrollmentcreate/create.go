// Package enrollmentcreate реализует HTTP-обработчик записи на курс.
//
// Handler принимает JSON-запрос с идентификатором курса, валидирует его,
// извлекает идентификатор пользователя из контекста и вызывает бизнес-логику
// записи. Платный курс без оплаты или подписки отклоняется с кодом 402.
package enrollmentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
	enrollmentservice "github.com/edlatam/lms-platform/internal/services/enrollment"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// Service описывает интерфейс бизнес-логики записи на курс.
type Service interface {
	Enroll(ctx context.Context, userID string, req models.DummyEnrollment) (string, error)
}

// Handler управляет HTTP-запросами записи на курс.
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
// @Summary Записаться на курс
// @Description Создает запись на опубликованный курс. Платный курс требует оплаченного заказа или активной подписки.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param request body models.DummyEnrollment true "Идентификатор курса"
// @Success 201 {object} response.Response "Запись создана"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 402 {object} response.ErrorResponse "Курс платный, требуется оплата"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 409 {object} response.ErrorResponse "Запись уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера при записи"
// @Security ApiKeyAuth
// @Router /enrollments [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyEnrollment
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

	enrollmentID, err := h.service.Enroll(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, enrollmentservice.ErrPaymentRequired):
			log.Info("payment required", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusPaymentRequired)
			render.JSON(w, r, response.Error("course requires payment"))
		case errors.Is(err, repository.ErrAlreadyExists):
			log.Info("enrollment already exists", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error("enrollment already exists"))
		case errors.Is(err, repository.ErrNotFound):
			log.Info("course not found", slog.String("course_id", req.CourseID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("course not found"))
		default:
			log.Error("failed to enroll", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error("could not enroll"))
		}
		return
	}

	log.Info("enrollment created", slog.String("enrollment_id", enrollmentID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"enrollment_id": enrollmentID,
	}))
}
