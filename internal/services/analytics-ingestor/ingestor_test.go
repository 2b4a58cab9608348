package services

import (
	"context"
	"errors"
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

type AnalyticsRepoMock struct {
	mock.Mock
}

func (m *AnalyticsRepoMock) InsertEvent(ctx context.Context, event models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *AnalyticsRepoMock) EnsureEventsPartition(ctx context.Context, monthStart time.Time) (string, error) {
	args := m.Called(ctx, monthStart)
	return args.String(0), args.Error(1)
}

func (m *AnalyticsRepoMock) ListEventPartitions(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *AnalyticsRepoMock) DropEventPartition(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func (m *AnalyticsRepoMock) CountEventsInMonth(ctx context.Context, monthStart time.Time) (int, error) {
	args := m.Called(ctx, monthStart)
	return args.Int(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAnalyticsIngestorService_HandleMessage(t *testing.T) {
	february := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		body       []byte
		setupMocks func(repo *AnalyticsRepoMock)
		wantErr    bool
	}{
		{
			name: "event lands in the partition of its month",
			body: []byte(`{"event_id":"evt-1","event_type":"order.paid","user_id":"user-1","occurred_at":"2026-02-15T10:00:00Z"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {
				repo.On("EnsureEventsPartition", mock.Anything, february).
					Return("events_202602", nil).Once()
				repo.On("InsertEvent", mock.Anything, mock.MatchedBy(func(ev models.Event) bool {
					return ev.EventID == "evt-1" && ev.EventType == models.EventOrderPaid
				})).Return(nil).Once()
			},
			wantErr: false,
		},
		{
			name: "missing timestamp is stamped on arrival",
			body: []byte(`{"event_id":"evt-2","event_type":"user.registered"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {
				repo.On("EnsureEventsPartition", mock.Anything, mock.Anything).
					Return("events_current", nil).Once()
				repo.On("InsertEvent", mock.Anything, mock.MatchedBy(func(ev models.Event) bool {
					return !ev.OccurredAt.IsZero()
				})).Return(nil).Once()
			},
			wantErr: false,
		},
		{
			name:       "garbage body fails for redelivery",
			body:       []byte(`{"event_id":`),
			setupMocks: func(repo *AnalyticsRepoMock) {},
			wantErr:    true,
		},
		{
			name:       "event without id is dropped",
			body:       []byte(`{"event_type":"order.paid"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {},
			wantErr:    false,
		},
		{
			name:       "event without type is dropped",
			body:       []byte(`{"event_id":"evt-3"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {},
			wantErr:    false,
		},
		{
			name: "redelivered event is acknowledged as duplicate",
			body: []byte(`{"event_id":"evt-1","event_type":"order.paid","occurred_at":"2026-02-15T10:00:00Z"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {
				repo.On("EnsureEventsPartition", mock.Anything, february).
					Return("events_202602", nil).Once()
				repo.On("InsertEvent", mock.Anything, mock.Anything).
					Return(fmt.Errorf("repository.InsertEvent: %w", repository.ErrAlreadyExists)).Once()
			},
			wantErr: false,
		},
		{
			name: "insert failure is returned for redelivery",
			body: []byte(`{"event_id":"evt-1","event_type":"order.paid","occurred_at":"2026-02-15T10:00:00Z"}`),
			setupMocks: func(repo *AnalyticsRepoMock) {
				repo.On("EnsureEventsPartition", mock.Anything, february).
					Return("events_202602", nil).Once()
				repo.On("InsertEvent", mock.Anything, mock.Anything).
					Return(errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(AnalyticsRepoMock)
			svc := NewAnalyticsIngestorService(repo, 24, newNoopLogger())
			tt.setupMocks(repo)

			err := svc.HandleMessage(tt.body)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestAnalyticsIngestorService_PartitionMaintenance(t *testing.T) {
	now := time.Now().UTC()
	currentName := "events_" + now.Format("200601")
	ancientStart := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := new(AnalyticsRepoMock)
	svc := NewAnalyticsIngestorService(repo, 24, newNoopLogger())

	repo.On("EnsureEventsPartition", mock.Anything, mock.Anything).
		Return(currentName, nil).Twice()
	repo.On("ListEventPartitions", mock.Anything).
		Return([]string{"events_200001", "events_backup_old", currentName}, nil).Once()
	repo.On("CountEventsInMonth", mock.Anything, ancientStart).Return(12, nil).Once()
	repo.On("DropEventPartition", mock.Anything, "events_200001").Return(nil).Once()

	svc.runPartitionMaintenance(context.Background())

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "DropEventPartition", mock.Anything, currentName)
	repo.AssertNotCalled(t, "DropEventPartition", mock.Anything, "events_backup_old")
}

func TestParsePartitionMonth(t *testing.T) {
	got, err := parsePartitionMonth("events_202501")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = parsePartitionMonth("events_backup_old")
	assert.Error(t, err)
}
