package datarightscreate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/models"
)

// MockService реализует интерфейс datarightscreate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateRequest(ctx context.Context, userID string, req models.DummyDataRights) (*models.DataRightsRequest, error) {
	args := m.Called(ctx, userID, req)
	if res := args.Get(0); res != nil {
		return res.(*models.DataRightsRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCreateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	userID := "7e6d5c4b-3a2f-4e1d-9c8b-7a6f5e4d3c2b"

	tests := []struct {
		name           string
		body           string
		withIdentity   bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:         "успешная подача запроса на выгрузку",
			body:         `{"request_type":"export","jurisdiction":"CO"}`,
			withIdentity: true,
			setupMock: func(m *MockService) {
				received := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
				request := &models.DataRightsRequest{
					ID:           "5e4d3c2b-1a0f-4e9d-8c7b-6a5f4e3d2c1b",
					UserID:       userID,
					RequestType:  models.DataRightsExport,
					Jurisdiction: models.JurisdictionCO,
					Status:       models.DataRightsStatusReceived,
					ReceivedAt:   received,
					DeadlineAt:   received.AddDate(0, 0, 15),
				}
				m.On("CreateRequest", mock.Anything, userID, mock.Anything).Return(request, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"status":"received"`,
		},
		{
			name:           "некорректный JSON",
			body:           `{"request_type":`,
			withIdentity:   true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "неизвестный тип запроса",
			body:           `{"request_type":"delete_everything","jurisdiction":"CO"}`,
			withIdentity:   true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field RequestType must be one of: export erasure rectification",
		},
		{
			name:           "нет юрисдикции",
			body:           `{"request_type":"erasure"}`,
			withIdentity:   true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field Jurisdiction is a required field",
		},
		{
			name:           "нет идентификатора пользователя в контексте",
			body:           `{"request_type":"export","jurisdiction":"CO"}`,
			withIdentity:   false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:         "ошибка сервиса запросов",
			body:         `{"request_type":"export","jurisdiction":"CO"}`,
			withIdentity: true,
			setupMock: func(m *MockService) {
				m.On("CreateRequest", mock.Anything, userID, mock.Anything).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"error":"could not create request"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/users/me/data-requests", strings.NewReader(tt.body))
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
