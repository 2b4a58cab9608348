package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

type ComplianceRepoMock struct {
	mock.Mock
}

func (m *ComplianceRepoMock) CreateDataRightsRequest(ctx context.Context, req models.DataRightsRequest) (*models.DataRightsRequest, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataRightsRequest), args.Error(1)
}

func (m *ComplianceRepoMock) GetDataRightsRequest(ctx context.Context, requestID string) (*models.DataRightsRequest, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DataRightsRequest), args.Error(1)
}

func (m *ComplianceRepoMock) ListUserDataRightsRequests(ctx context.Context, userID string, limit, offset int) ([]*models.DataRightsRequest, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DataRightsRequest), args.Error(1)
}

func (m *ComplianceRepoMock) StartDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	args := m.Called(ctx, requestID)
	return args.Int(0), args.Error(1)
}

func (m *ComplianceRepoMock) CompleteDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	args := m.Called(ctx, requestID)
	return args.Int(0), args.Error(1)
}

func (m *ComplianceRepoMock) RejectDataRightsRequest(ctx context.Context, requestID string) (int, error) {
	args := m.Called(ctx, requestID)
	return args.Int(0), args.Error(1)
}

type EventsMock struct {
	mock.Mock
}

func (m *EventsMock) Record(event models.Event) {
	m.Called(event)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestComplianceService_CreateRequest(t *testing.T) {
	now := time.Now().UTC()
	stored := &models.DataRightsRequest{ID: "req-1", UserID: "user-1",
		RequestType: models.DataRightsExport, Jurisdiction: models.JurisdictionCO,
		Status: models.DataRightsStatusReceived, ReceivedAt: now, DeadlineAt: now.AddDate(0, 0, 15)}

	tests := []struct {
		name       string
		req        models.DummyDataRights
		setupMocks func(r *ComplianceRepoMock, e *EventsMock)
		wantErr    bool
	}{
		{
			name: "success returns the computed deadline",
			req:  models.DummyDataRights{RequestType: models.DataRightsExport, Jurisdiction: models.JurisdictionCO},
			setupMocks: func(r *ComplianceRepoMock, e *EventsMock) {
				r.On("CreateDataRightsRequest", mock.Anything, mock.MatchedBy(func(req models.DataRightsRequest) bool {
					return req.UserID == "user-1" && req.RequestType == models.DataRightsExport &&
						req.Details == nil
				})).Return(stored, nil).Once()
				e.On("Record", mock.MatchedBy(func(ev models.Event) bool {
					return ev.EventType == models.EventDataRightsCreated
				})).Return().Once()
			},
		},
		{
			name: "details are stored when present",
			req: models.DummyDataRights{RequestType: models.DataRightsErasure,
				Jurisdiction: models.JurisdictionEU, Details: "Borrar historial de pagos"},
			setupMocks: func(r *ComplianceRepoMock, e *EventsMock) {
				r.On("CreateDataRightsRequest", mock.Anything, mock.MatchedBy(func(req models.DataRightsRequest) bool {
					return req.Details != nil && *req.Details == "Borrar historial de pagos"
				})).Return(stored, nil).Once()
				e.On("Record", mock.Anything).Return().Once()
			},
		},
		{
			name: "storage failure",
			req:  models.DummyDataRights{RequestType: models.DataRightsExport, Jurisdiction: models.JurisdictionCO},
			setupMocks: func(r *ComplianceRepoMock, _ *EventsMock) {
				r.On("CreateDataRightsRequest", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("insert request: connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(ComplianceRepoMock)
			events := new(EventsMock)
			svc := NewComplianceService(repo, events, newNoopLogger())
			tt.setupMocks(repo, events)

			got, err := svc.CreateRequest(context.Background(), "user-1", tt.req)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.False(t, got.DeadlineAt.IsZero())
			}
			repo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestComplianceService_Start(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *ComplianceRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name: "received request is taken into work",
			setupMocks: func(r *ComplianceRepoMock) {
				r.On("StartDataRightsRequest", mock.Anything, "req-1").Return(1, nil).Once()
			},
		},
		{
			name: "completed request cannot be restarted",
			setupMocks: func(r *ComplianceRepoMock) {
				r.On("StartDataRightsRequest", mock.Anything, "req-1").Return(0, nil).Once()
				r.On("GetDataRightsRequest", mock.Anything, "req-1").
					Return(&models.DataRightsRequest{ID: "req-1",
						Status: models.DataRightsStatusCompleted}, nil).Once()
			},
			wantErr: true,
			errIs:   repository.ErrInvalidTransition,
		},
		{
			name: "missing request",
			setupMocks: func(r *ComplianceRepoMock) {
				r.On("StartDataRightsRequest", mock.Anything, "req-1").Return(0, nil).Once()
				r.On("GetDataRightsRequest", mock.Anything, "req-1").
					Return(nil, fmt.Errorf("repository.GetDataRightsRequest: %w", repository.ErrNotFound)).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(ComplianceRepoMock)
			svc := NewComplianceService(repo, new(EventsMock), newNoopLogger())
			tt.setupMocks(repo)

			err := svc.Start(context.Background(), "req-1")

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestComplianceService_CompleteReject(t *testing.T) {
	t.Run("in progress request is completed", func(t *testing.T) {
		repo := new(ComplianceRepoMock)
		svc := NewComplianceService(repo, new(EventsMock), newNoopLogger())
		repo.On("CompleteDataRightsRequest", mock.Anything, "req-1").Return(1, nil).Once()

		err := svc.Complete(context.Background(), "req-1")

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("received request cannot be completed", func(t *testing.T) {
		repo := new(ComplianceRepoMock)
		svc := NewComplianceService(repo, new(EventsMock), newNoopLogger())
		repo.On("CompleteDataRightsRequest", mock.Anything, "req-1").Return(0, nil).Once()
		repo.On("GetDataRightsRequest", mock.Anything, "req-1").
			Return(&models.DataRightsRequest{ID: "req-1",
				Status: models.DataRightsStatusReceived}, nil).Once()

		err := svc.Complete(context.Background(), "req-1")

		assert.ErrorIs(t, err, repository.ErrInvalidTransition)
		repo.AssertExpectations(t)
	})

	t.Run("open request is rejected", func(t *testing.T) {
		repo := new(ComplianceRepoMock)
		svc := NewComplianceService(repo, new(EventsMock), newNoopLogger())
		repo.On("RejectDataRightsRequest", mock.Anything, "req-1").Return(1, nil).Once()

		err := svc.Reject(context.Background(), "req-1")

		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})
}
