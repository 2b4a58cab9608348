package middlewarectx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

const validUserID = "0c7f7f4a-4f2b-4f6e-9d2a-7a1f9e3b5c6d"

func TestIdentity(t *testing.T) {
	tests := []struct {
		name           string
		header         string
		setupMock      func(m *MockService)
		expectedStatus int
		wantIdentity   bool
	}{
		{
			name:   "valid header resolves the user",
			header: validUserID,
			setupMock: func(m *MockService) {
				m.On("GetUserByID", mock.Anything, validUserID).
					Return(&models.User{ID: validUserID, Role: models.RoleStudent}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			wantIdentity:   true,
		},
		{
			name:           "missing header is rejected",
			header:         "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed header is rejected",
			header:         "not-a-uuid",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "deleted user is rejected",
			header: validUserID,
			setupMock: func(m *MockService) {
				m.On("GetUserByID", mock.Anything, validUserID).
					Return(nil, fmt.Errorf("repository.GetUserByID: %w", repository.ErrNotFound)).Once()
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			var gotUserID, gotRole string
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				gotUserID, _ = r.Context().Value(UserID).(string)
				gotRole, _ = r.Context().Value(UserRole).(string)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set(HeaderUserID, tt.header)
			}
			w := httptest.NewRecorder()

			Identity(mockService, newNoopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.wantIdentity {
				assert.Equal(t, validUserID, gotUserID)
				assert.Equal(t, models.RoleStudent, gotRole)
			} else {
				assert.Empty(t, gotUserID)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestIdentityOptional(t *testing.T) {
	t.Run("missing header passes through anonymously", func(t *testing.T) {
		mockService := new(MockService)

		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			_, hasID := r.Context().Value(UserID).(string)
			assert.False(t, hasID)
		})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		w := httptest.NewRecorder()

		IdentityOptional(mockService, newNoopLogger())(next).ServeHTTP(w, req)

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("present header is still validated", func(t *testing.T) {
		mockService := new(MockService)
		mockService.On("GetUserByID", mock.Anything, validUserID).
			Return(nil, fmt.Errorf("repository.GetUserByID: %w", repository.ErrNotFound)).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil)
		req.Header.Set(HeaderUserID, validUserID)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			t.Error("next handler should not be reached")
		})
		IdentityOptional(mockService, newNoopLogger())(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name           string
		role           string
		allowed        []string
		expectedStatus int
	}{
		{
			name:           "allowed role passes",
			role:           models.RoleInstructor,
			allowed:        []string{models.RoleInstructor, models.RoleAdmin},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "student is refused instructor routes",
			role:           models.RoleStudent,
			allowed:        []string{models.RoleInstructor, models.RoleAdmin},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing role is unauthorized",
			role:           "",
			allowed:        []string{models.RoleAdmin},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/courses", nil)
			if tt.role != "" {
				req = req.WithContext(context.WithValue(req.Context(), UserRole, tt.role))
			}
			w := httptest.NewRecorder()

			RequireRole(newNoopLogger(), tt.allowed...)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}
