package profileme

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// MockService реализует интерфейс profileme.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Me(ctx context.Context, userID string) (*models.Me, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.Me), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestMeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	userID := "7e6d5c4b-3a2f-4e1d-9c8b-7a6f5e4d3c2b"

	tests := []struct {
		name           string
		withIdentity   bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:         "успешное чтение профиля",
			withIdentity: true,
			setupMock: func(m *MockService) {
				me := &models.Me{
					ID:         userID,
					Email:      "student@example.com",
					Role:       models.RoleStudent,
					IsVerified: true,
					FullName:   "Ana Torres",
					Locale:     "es",
				}
				m.On("Me", mock.Anything, userID).Return(me, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"full_name":"Ana Torres"`,
		},
		{
			name:           "нет идентификатора пользователя в контексте",
			withIdentity:   false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:         "учётная запись не найдена",
			withIdentity: true,
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, userID).Return(nil, repository.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"account not found"`,
		},
		{
			name:         "ошибка сервиса профиля",
			withIdentity: true,
			setupMock: func(m *MockService) {
				m.On("Me", mock.Anything, userID).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not read profile"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.withIdentity {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserID, userID))
			}

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
