// Package middlewarectx содержит HTTP middleware для установления личности
// запроса и проверки прав доступа.
//
// Identity читает заголовок X-User-ID, проставленный шлюзом аутентификации,
// проверяет формат UUID, загружает живого пользователя через сервис
// и кладёт в контекст идентификатор и роль для дальнейшего использования
// в обработчиках.
//
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/edlatam/lms-platform/internal/http/response"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID — ключ для идентификатора пользователя в контексте
	UserID Key = "user_id"
	// UserRole — ключ для роли пользователя в контексте
	UserRole Key = "user_role"
)

// HeaderUserID — заголовок с идентификатором пользователя от шлюза.
const HeaderUserID = "X-User-ID"

// Service описывает интерфейс сервиса для загрузки пользователя.
type Service interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
}

// Identity возвращает HTTP middleware, который устанавливает личность запроса
// по заголовку X-User-ID.
//
// Если заголовок содержит корректный UUID существующего пользователя,
// добавляет идентификатор и роль в контекст запроса, иначе возвращает
// ошибку с HTTP статусом 401 Unauthorized.
func Identity(service Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Identity"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				log.Error("missing user identity header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing user identity"))
				return
			}

			ctx, ok := resolveIdentity(r.Context(), service, log, w, r, userID)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityOptional работает как Identity, но отсутствие заголовка
// не является ошибкой: запрос продолжается анонимно. Заголовок
// с неизвестным или некорректным идентификатором отклоняется.
func IdentityOptional(service Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.IdentityOptional"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userID := r.Header.Get(HeaderUserID)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, ok := resolveIdentity(r.Context(), service, log, w, r, userID)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveIdentity(ctx context.Context, service Service, log *slog.Logger,
	w http.ResponseWriter, r *http.Request, userID string) (context.Context, bool) {
	if _, err := uuid.Parse(userID); err != nil {
		log.Error("malformed user identity header", sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid user identity"))
		return nil, false
	}

	user, err := service.GetUserByID(ctx, userID)
	if err != nil {
		log.Error("unknown or deleted user", slog.String("user_id", userID), sl.Err(err))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid user identity"))
		return nil, false
	}

	ctx = context.WithValue(ctx, UserID, user.ID)
	ctx = context.WithValue(ctx, UserRole, user.Role)
	return ctx, true
}
