package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

type LessonRepoMock struct {
	mock.Mock
}

func (m *LessonRepoMock) CreateLesson(ctx context.Context, lesson models.Lesson) (string, error) {
	args := m.Called(ctx, lesson)
	return args.String(0), args.Error(1)
}

func (m *LessonRepoMock) GetLesson(ctx context.Context, lessonID string) (*models.Lesson, error) {
	args := m.Called(ctx, lessonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Lesson), args.Error(1)
}

func (m *LessonRepoMock) ListLessons(ctx context.Context, courseID string, previewOnly bool) ([]*models.Lesson, error) {
	args := m.Called(ctx, courseID, previewOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Lesson), args.Error(1)
}

func (m *LessonRepoMock) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *LessonRepoMock) EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error) {
	args := m.Called(ctx, userID, courseID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestLessonService_Create(t *testing.T) {
	course := &models.Course{ID: "course-1", InstructorID: "inst-1", IsPublished: true}

	tests := []struct {
		name       string
		instructor string
		req        models.DummyLesson
		setupMocks func(r *LessonRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name:       "success with content url",
			instructor: "inst-1",
			req:        models.DummyLesson{Position: 1, Title: "Introducción", ContentURL: "https://cdn.example.com/v/1.mp4"},
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(course, nil).Once()
				r.On("CreateLesson", mock.Anything, mock.MatchedBy(func(l models.Lesson) bool {
					return l.CourseID == "course-1" && l.Position == 1 &&
						l.ContentURL != nil && *l.ContentURL == "https://cdn.example.com/v/1.mp4"
				})).Return("lesson-1", nil).Once()
			},
		},
		{
			name:       "empty content url stays null",
			instructor: "inst-1",
			req:        models.DummyLesson{Position: 2, Title: "Variables"},
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(course, nil).Once()
				r.On("CreateLesson", mock.Anything, mock.MatchedBy(func(l models.Lesson) bool {
					return l.ContentURL == nil
				})).Return("lesson-2", nil).Once()
			},
		},
		{
			name:       "foreign course looks like missing",
			instructor: "inst-2",
			req:        models.DummyLesson{Position: 1, Title: "Introducción"},
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(course, nil).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(LessonRepoMock)
			svc := NewLessonService(repo, newNoopLogger())
			tt.setupMocks(repo)

			id, err := svc.Create(context.Background(), tt.instructor, "course-1", tt.req)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, id)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLessonService_List(t *testing.T) {
	published := &models.Course{ID: "course-1", InstructorID: "inst-1", IsPublished: true}
	draft := &models.Course{ID: "course-2", InstructorID: "inst-1", IsPublished: false}
	lessons := []*models.Lesson{{ID: "lesson-1", CourseID: "course-1", Position: 1, Title: "Introducción"}}

	tests := []struct {
		name       string
		viewerID   string
		courseID   string
		setupMocks func(r *LessonRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name:     "anonymous visitor gets previews only",
			courseID: "course-1",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
				r.On("ListLessons", mock.Anything, "course-1", true).Return(lessons, nil).Once()
			},
		},
		{
			name:     "enrolled student sees everything",
			viewerID: "user-1",
			courseID: "course-1",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
				r.On("EnrollmentExistsActive", mock.Anything, "user-1", "course-1").Return(true, nil).Once()
				r.On("ListLessons", mock.Anything, "course-1", false).Return(lessons, nil).Once()
			},
		},
		{
			name:     "visitor without enrollment gets previews only",
			viewerID: "user-2",
			courseID: "course-1",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
				r.On("EnrollmentExistsActive", mock.Anything, "user-2", "course-1").Return(false, nil).Once()
				r.On("ListLessons", mock.Anything, "course-1", true).Return(lessons, nil).Once()
			},
		},
		{
			name:     "instructor sees draft course lessons",
			viewerID: "inst-1",
			courseID: "course-2",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-2").Return(draft, nil).Once()
				r.On("ListLessons", mock.Anything, "course-2", false).Return(lessons, nil).Once()
			},
		},
		{
			name:     "draft course hidden from others",
			viewerID: "user-1",
			courseID: "course-2",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetCourse", mock.Anything, "course-2").Return(draft, nil).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(LessonRepoMock)
			svc := NewLessonService(repo, newNoopLogger())
			tt.setupMocks(repo)

			got, err := svc.List(context.Background(), tt.viewerID, tt.courseID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
			} else {
				assert.NoError(t, err)
				assert.Len(t, got, 1)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLessonService_Get(t *testing.T) {
	published := &models.Course{ID: "course-1", InstructorID: "inst-1", IsPublished: true}
	preview := &models.Lesson{ID: "lesson-1", CourseID: "course-1", Position: 1, Title: "Introducción", IsPreview: true}
	full := &models.Lesson{ID: "lesson-2", CourseID: "course-1", Position: 2, Title: "Variables"}

	tests := []struct {
		name       string
		viewerID   string
		lessonID   string
		setupMocks func(r *LessonRepoMock)
		wantErr    bool
		errIs      error
	}{
		{
			name:     "preview lesson open to anonymous",
			lessonID: "lesson-1",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetLesson", mock.Anything, "lesson-1").Return(preview, nil).Once()
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
			},
		},
		{
			name:     "full lesson requires enrollment",
			lessonID: "lesson-2",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetLesson", mock.Anything, "lesson-2").Return(full, nil).Once()
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
			},
			wantErr: true,
			errIs:   ErrNotEnrolled,
		},
		{
			name:     "full lesson open to enrolled student",
			viewerID: "user-1",
			lessonID: "lesson-2",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetLesson", mock.Anything, "lesson-2").Return(full, nil).Once()
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
				r.On("EnrollmentExistsActive", mock.Anything, "user-1", "course-1").Return(true, nil).Once()
			},
		},
		{
			name:     "full lesson open to the instructor",
			viewerID: "inst-1",
			lessonID: "lesson-2",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetLesson", mock.Anything, "lesson-2").Return(full, nil).Once()
				r.On("GetCourse", mock.Anything, "course-1").Return(published, nil).Once()
			},
		},
		{
			name:     "missing lesson",
			lessonID: "lesson-9",
			setupMocks: func(r *LessonRepoMock) {
				r.On("GetLesson", mock.Anything, "lesson-9").
					Return(nil, fmt.Errorf("repository.GetLesson: %w", repository.ErrNotFound)).Once()
			},
			wantErr: true,
			errIs:   repository.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(LessonRepoMock)
			svc := NewLessonService(repo, newNoopLogger())
			tt.setupMocks(repo)

			got, err := svc.Get(context.Background(), tt.viewerID, tt.lessonID)

			if tt.wantErr {
				assert.Error(t, err)
				assert.ErrorIs(t, err, tt.errIs)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.lessonID, got.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}
