package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edlatam/lms-platform/internal/models"
)

func TestStorage_CreateUser(t *testing.T) {
	type args struct {
		ctx  context.Context
		user models.User
	}

	tests := []struct {
		name    string
		args    args
		wantErr error
		setup   func(t *testing.T, factory *TestDataFactory)
	}{
		{
			name: "successful register user",
			args: args{
				ctx: context.Background(),
				user: models.User{
					Email:        "student@example.com",
					PasswordHash: "hashedpassword",
					Role:         models.RoleStudent,
				},
			},
			wantErr: nil,
			setup:   func(_ *testing.T, _ *TestDataFactory) {},
		},
		{
			name: "duplicate email returns ErrAlreadyExists",
			args: args{
				ctx: context.Background(),
				user: models.User{
					Email:        "student@example.com",
					PasswordHash: "anotherhash",
					Role:         models.RoleStudent,
				},
			},
			wantErr: ErrAlreadyExists,
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateUser(t, "student@example.com", models.RoleStudent)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			tt.setup(t, factory)

			gotID, err := storage.CreateUser(tt.args.ctx, tt.args.user)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, gotID)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, gotID)

			verification := NewTestVerification(storage)
			verification.VerifyRowCount(t, 1,
				`SELECT count(*) FROM auth.users WHERE id = $1`, gotID)
		})
	}
}

func TestStorage_GetUserByEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr error
		setup   func(t *testing.T, storage *Storage, factory *TestDataFactory)
	}{
		{
			name:    "successful get user by email",
			email:   "student@example.com",
			wantErr: nil,
			setup: func(t *testing.T, _ *Storage, factory *TestDataFactory) {
				factory.CreateUser(t, "student@example.com", models.RoleStudent)
			},
		},
		{
			name:    "non-existing user returns ErrNotFound",
			email:   "nobody@example.com",
			wantErr: ErrNotFound,
			setup:   func(_ *testing.T, _ *Storage, _ *TestDataFactory) {},
		},
		{
			name:    "soft-deleted user is excluded",
			email:   "gone@example.com",
			wantErr: ErrNotFound,
			setup: func(t *testing.T, storage *Storage, factory *TestDataFactory) {
				userID := factory.CreateUser(t, "gone@example.com", models.RoleStudent)
				rows, err := storage.SoftDeleteUser(context.Background(), userID)
				require.NoError(t, err)
				require.Equal(t, 1, rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			tt.setup(t, storage, factory)

			got, err := storage.GetUserByEmail(context.Background(), tt.email)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.email, got.Email)
			assert.Equal(t, models.RoleStudent, got.Role)
		})
	}
}

func TestStorage_GetOrCreateProfile(t *testing.T) {
	t.Run("first read creates, second read returns same row", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		ctx := context.Background()

		first, err := storage.GetOrCreateProfile(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, userID, first.UserID)
		assert.Equal(t, "es", first.Locale)

		second, err := storage.GetOrCreateProfile(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, first.UserID, second.UserID)

		verification := NewTestVerification(storage)
		verification.VerifyRowCount(t, 1,
			`SELECT count(*) FROM users.user_profiles WHERE user_id = $1`, userID)
	})
}

func TestStorage_PublishCourse(t *testing.T) {
	t.Run("publication is one-way and happens once", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
		courseID := factory.CreateCourse(t, instructorID, "Go desde cero", "go-desde-cero", 2500000, false)
		ctx := context.Background()

		rows, err := storage.PublishCourse(ctx, courseID)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		course, err := storage.GetCourse(ctx, courseID)
		require.NoError(t, err)
		require.True(t, course.IsPublished)
		require.NotNil(t, course.PublishedAt)
		firstPublishedAt := *course.PublishedAt

		// Повторная публикация не трогает строку и published_at.
		rows, err = storage.PublishCourse(ctx, courseID)
		require.NoError(t, err)
		assert.Equal(t, 0, rows)

		course, err = storage.GetCourse(ctx, courseID)
		require.NoError(t, err)
		require.NotNil(t, course.PublishedAt)
		assert.True(t, firstPublishedAt.Equal(*course.PublishedAt))
	})
}

func TestStorage_CreateReview(t *testing.T) {
	type args struct {
		ctx    context.Context
		review models.Review
	}

	tests := []struct {
		name    string
		args    args
		wantErr error
		setup   func(t *testing.T, factory *TestDataFactory) (courseID, userID string)
	}{
		{
			name: "review updates rating counters in the same transaction",
			args: args{
				ctx:    context.Background(),
				review: models.Review{Rating: 5},
			},
			wantErr: nil,
			setup: func(t *testing.T, factory *TestDataFactory) (string, string) {
				instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
				userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
				courseID := factory.CreateCourse(t, instructorID, "SQL avanzado", "sql-avanzado", 1500000, true)
				return courseID, userID
			},
		},
		{
			name: "second review for the same pair returns ErrAlreadyExists",
			args: args{
				ctx:    context.Background(),
				review: models.Review{Rating: 2},
			},
			wantErr: ErrAlreadyExists,
			setup: func(t *testing.T, factory *TestDataFactory) (string, string) {
				instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
				userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
				courseID := factory.CreateCourse(t, instructorID, "SQL avanzado", "sql-avanzado", 1500000, true)
				_, err := factory.storage.DB.Exec(`INSERT INTO courses.course_reviews (course_id, user_id, rating)
					VALUES ($1, $2, 4)`, courseID, userID)
				require.NoError(t, err)
				return courseID, userID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			courseID, userID := tt.setup(t, factory)
			tt.args.review.CourseID = courseID
			tt.args.review.UserID = userID

			gotID, err := storage.CreateReview(tt.args.ctx, tt.args.review)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, gotID)

			course, err := storage.GetCourse(tt.args.ctx, courseID)
			require.NoError(t, err)
			assert.Equal(t, int64(5), course.RatingSum)
			assert.Equal(t, 1, course.RatingCount)
			assert.InDelta(t, 5.0, course.Rating(), 0.001)
		})
	}
}

func TestStorage_CreateEnrollment(t *testing.T) {
	type args struct {
		ctx        context.Context
		enrollment models.Enrollment
	}

	tests := []struct {
		name    string
		args    args
		wantErr error
		setup   func(t *testing.T, factory *TestDataFactory) (userID, courseID string)
	}{
		{
			name: "successful enrollment",
			args: args{
				ctx:        context.Background(),
				enrollment: models.Enrollment{Status: models.EnrollmentStatusActive},
			},
			wantErr: nil,
			setup: func(t *testing.T, factory *TestDataFactory) (string, string) {
				instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
				userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
				courseID := factory.CreateCourse(t, instructorID, "Docker", "docker", 990000, true)
				return userID, courseID
			},
		},
		{
			name: "duplicate user and course pair returns ErrAlreadyExists",
			args: args{
				ctx:        context.Background(),
				enrollment: models.Enrollment{Status: models.EnrollmentStatusActive},
			},
			wantErr: ErrAlreadyExists,
			setup: func(t *testing.T, factory *TestDataFactory) (string, string) {
				instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
				userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
				courseID := factory.CreateCourse(t, instructorID, "Docker", "docker", 990000, true)
				factory.CreateEnrollment(t, userID, courseID, models.EnrollmentStatusActive)
				return userID, courseID
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			userID, courseID := tt.setup(t, factory)
			tt.args.enrollment.UserID = userID
			tt.args.enrollment.CourseID = courseID

			gotID, err := storage.CreateEnrollment(tt.args.ctx, tt.args.enrollment)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, gotID)
		})
	}
}

func TestStorage_UpdateEnrollmentProgress(t *testing.T) {
	t.Run("progress never decreases", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		courseID := factory.CreateCourse(t, instructorID, "Kubernetes", "kubernetes", 3500000, true)
		enrollmentID := factory.CreateEnrollment(t, userID, courseID, models.EnrollmentStatusActive)
		ctx := context.Background()

		current, err := storage.UpdateEnrollmentProgress(ctx, enrollmentID, userID, 40)
		require.NoError(t, err)
		assert.InDelta(t, 40.0, current, 0.001)

		// Меньшее значение не откатывает прогресс назад.
		current, err = storage.UpdateEnrollmentProgress(ctx, enrollmentID, userID, 25)
		require.NoError(t, err)
		assert.InDelta(t, 40.0, current, 0.001)

		current, err = storage.UpdateEnrollmentProgress(ctx, enrollmentID, userID, 100)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, current, 0.001)
	})

	t.Run("paused enrollment rejects progress updates", func(t *testing.T) {
		storage, cleanup := setupTestDatabase(t)
		defer cleanup()

		factory := NewTestDataFactory(storage)
		instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
		userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
		courseID := factory.CreateCourse(t, instructorID, "Kubernetes", "kubernetes", 3500000, true)
		enrollmentID := factory.CreateEnrollment(t, userID, courseID, models.EnrollmentStatusPaused)

		_, err := storage.UpdateEnrollmentProgress(context.Background(), enrollmentID, userID, 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestStorage_EnrollmentTransitions(t *testing.T) {
	tests := []struct {
		name       string
		fromStatus string
		transition func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error)
		wantRows   int
		wantStatus string
	}{
		{
			name:       "complete from active",
			fromStatus: models.EnrollmentStatusActive,
			transition: func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error) {
				return s.CompleteEnrollment(ctx, enrollmentID, userID)
			},
			wantRows:   1,
			wantStatus: models.EnrollmentStatusCompleted,
		},
		{
			name:       "complete from paused is rejected",
			fromStatus: models.EnrollmentStatusPaused,
			transition: func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error) {
				return s.CompleteEnrollment(ctx, enrollmentID, userID)
			},
			wantRows:   0,
			wantStatus: models.EnrollmentStatusPaused,
		},
		{
			name:       "pause from active",
			fromStatus: models.EnrollmentStatusActive,
			transition: func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error) {
				return s.PauseEnrollment(ctx, enrollmentID, userID)
			},
			wantRows:   1,
			wantStatus: models.EnrollmentStatusPaused,
		},
		{
			name:       "resume from paused",
			fromStatus: models.EnrollmentStatusPaused,
			transition: func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error) {
				return s.ResumeEnrollment(ctx, enrollmentID, userID)
			},
			wantRows:   1,
			wantStatus: models.EnrollmentStatusActive,
		},
		{
			name:       "resume from completed is rejected",
			fromStatus: models.EnrollmentStatusCompleted,
			transition: func(ctx context.Context, s *Storage, enrollmentID, userID string) (int, error) {
				return s.ResumeEnrollment(ctx, enrollmentID, userID)
			},
			wantRows:   0,
			wantStatus: models.EnrollmentStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage, cleanup := setupTestDatabase(t)
			defer cleanup()

			factory := NewTestDataFactory(storage)
			instructorID := factory.CreateUser(t, RandomEmail(), models.RoleInstructor)
			userID := factory.CreateUser(t, RandomEmail(), models.RoleStudent)
			courseID := factory.CreateCourse(t, instructorID, "Terraform", "terraform", 2000000, true)
			enrollmentID := factory.CreateEnrollment(t, userID, courseID, tt.fromStatus)

			gotRows, err := tt.transition(context.Background(), storage, enrollmentID, userID)

			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, gotRows)

			verification := NewTestVerification(storage)
			verification.VerifyRowStatus(t, "enrollments.enrollments", enrollmentID, tt.wantStatus)
		})
	}
}
