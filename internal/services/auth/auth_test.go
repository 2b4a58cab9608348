package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/lib/password"
	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *UserRepoMock) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) MarkEmailVerified(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

func (m *UserRepoMock) SoftDeleteUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

type EventsMock struct {
	mock.Mock
}

func (m *EventsMock) Record(event models.Event) {
	m.Called(event)
}

func (m *EventsMock) Notify(msg models.NotificationMessage) {
	m.Called(msg)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		req        models.DummyRegister
		setupMocks func(r *UserRepoMock, e *EventsMock)
		wantErr    bool
		errIs      error
	}{
		{
			name: "success - default role is student",
			req:  models.DummyRegister{Email: "ana@example.com", Password: "secret123"},
			setupMocks: func(r *UserRepoMock, e *EventsMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Email == "ana@example.com" &&
						u.Role == models.RoleStudent &&
						password.CompareHash(u.PasswordHash, "secret123") == nil
				})).Return("user-1", nil).Once()
				e.On("Record", mock.MatchedBy(func(ev models.Event) bool {
					return ev.EventType == models.EventUserRegistered && ev.UserID != nil && *ev.UserID == "user-1"
				})).Return().Once()
				e.On("Notify", mock.MatchedBy(func(msg models.NotificationMessage) bool {
					return msg.Topic == models.TopicWelcome && msg.Email == "ana@example.com"
				})).Return().Once()
			},
		},
		{
			name: "success - instructor role is kept",
			req:  models.DummyRegister{Email: "prof@example.com", Password: "secret123", Role: models.RoleInstructor},
			setupMocks: func(r *UserRepoMock, e *EventsMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Role == models.RoleInstructor
				})).Return("user-2", nil).Once()
				e.On("Record", mock.Anything).Return().Once()
				e.On("Notify", mock.Anything).Return().Once()
			},
		},
		{
			name: "duplicate email",
			req:  models.DummyRegister{Email: "ana@example.com", Password: "secret123"},
			setupMocks: func(r *UserRepoMock, _ *EventsMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).
					Return("", fmt.Errorf("repository.CreateUser: %w", repository.ErrAlreadyExists)).Once()
			},
			wantErr: true,
			errIs:   repository.ErrAlreadyExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			events := new(EventsMock)
			svc := NewAuthService(repo, events, newNoopLogger())
			tt.setupMocks(repo, events)

			id, err := svc.Register(context.Background(), tt.req)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, id)
			}
			repo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("secret123")
	if err != nil {
		t.Fatalf("hash fixture: %v", err)
	}
	user := &models.User{ID: "user-1", Email: "ana@example.com", PasswordHash: hash, Role: models.RoleStudent}

	tests := []struct {
		name       string
		req        models.DummyLogin
		setupMocks func(r *UserRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name: "success",
			req:  models.DummyLogin{Email: "ana@example.com", Password: "secret123"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(user, nil).Once()
			},
		},
		{
			name: "unknown email maps to invalid credentials",
			req:  models.DummyLogin{Email: "ghost@example.com", Password: "secret123"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "ghost@example.com").
					Return(nil, fmt.Errorf("repository.GetUserByEmail: %w", repository.ErrNotFound)).Once()
			},
			wantErr: true,
			errIs:   ErrInvalidCredentials,
		},
		{
			name: "wrong password maps to invalid credentials",
			req:  models.DummyLogin{Email: "ana@example.com", Password: "letmein"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "ana@example.com").Return(user, nil).Once()
			},
			wantErr: true,
			errIs:   ErrInvalidCredentials,
		},
		{
			name: "storage failure is not masked",
			req:  models.DummyLogin{Email: "ana@example.com", Password: "secret123"},
			setupMocks: func(r *UserRepoMock) {
				r.On("GetUserByEmail", mock.Anything, "ana@example.com").
					Return(nil, errors.New("connection refused")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			events := new(EventsMock)
			svc := NewAuthService(repo, events, newNoopLogger())
			tt.setupMocks(repo)

			got, err := svc.Login(context.Background(), tt.req)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, user, got)
			}
			repo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestAuthService_VerifyEmail(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		setupMocks func(r *UserRepoMock, e *EventsMock)
		wantErr    bool
		errIs      error
	}{
		{
			name:  "first verification records event",
			email: "ana@example.com",
			setupMocks: func(r *UserRepoMock, e *EventsMock) {
				r.On("MarkEmailVerified", mock.Anything, "ana@example.com").Return(1, nil).Once()
				r.On("GetUserByEmail", mock.Anything, "ana@example.com").
					Return(&models.User{ID: "user-1", Email: "ana@example.com", IsVerified: true}, nil).Once()
				e.On("Record", mock.MatchedBy(func(ev models.Event) bool {
					return ev.EventType == models.EventUserVerified
				})).Return().Once()
			},
		},
		{
			name:  "repeat verification is not an error",
			email: "ana@example.com",
			setupMocks: func(r *UserRepoMock, _ *EventsMock) {
				r.On("MarkEmailVerified", mock.Anything, "ana@example.com").Return(0, nil).Once()
				r.On("GetUserByEmail", mock.Anything, "ana@example.com").
					Return(&models.User{ID: "user-1", Email: "ana@example.com", IsVerified: true}, nil).Once()
			},
		},
		{
			name:  "unknown email",
			email: "ghost@example.com",
			setupMocks: func(r *UserRepoMock, _ *EventsMock) {
				r.On("MarkEmailVerified", mock.Anything, "ghost@example.com").Return(0, nil).Once()
				r.On("GetUserByEmail", mock.Anything, "ghost@example.com").
					Return(nil, fmt.Errorf("repository.GetUserByEmail: %w", repository.ErrNotFound)).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			events := new(EventsMock)
			svc := NewAuthService(repo, events, newNoopLogger())
			tt.setupMocks(repo, events)

			err := svc.VerifyEmail(context.Background(), tt.email)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
			events.AssertExpectations(t)
		})
	}
}

func TestAuthService_DeleteAccount(t *testing.T) {
	tests := []struct {
		name       string
		userID     string
		setupMocks func(r *UserRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name:   "success",
			userID: "user-1",
			setupMocks: func(r *UserRepoMock) {
				r.On("SoftDeleteUser", mock.Anything, "user-1").Return(1, nil).Once()
			},
		},
		{
			name:   "already deleted",
			userID: "user-1",
			setupMocks: func(r *UserRepoMock) {
				r.On("SoftDeleteUser", mock.Anything, "user-1").Return(0, nil).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			events := new(EventsMock)
			svc := NewAuthService(repo, events, newNoopLogger())
			tt.setupMocks(repo)

			err := svc.DeleteAccount(context.Background(), tt.userID)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}
