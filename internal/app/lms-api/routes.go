// Package lmsapi предоставляет маршруты HTTP-приложения платформы.
package lmsapi

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/edlatam/lms-platform/internal/config"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/quizcreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/quizlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/submissiongrade"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/submissionlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/submissionstart"
	"github.com/edlatam/lms-platform/internal/http/handlers/assessment/submissionsubmit"
	"github.com/edlatam/lms-platform/internal/http/handlers/auth/login"
	"github.com/edlatam/lms-platform/internal/http/handlers/auth/register"
	"github.com/edlatam/lms-platform/internal/http/handlers/auth/verifyemail"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/coursecreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/courselist"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/coursemine"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/coursepublish"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/courseread"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/courseremove"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/courseupdate"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/reviewcreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/course/reviewlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/datarights/datarightscomplete"
	"github.com/edlatam/lms-platform/internal/http/handlers/datarights/datarightscreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/datarights/datarightslist"
	"github.com/edlatam/lms-platform/internal/http/handlers/datarights/datarightsreject"
	"github.com/edlatam/lms-platform/internal/http/handlers/datarights/datarightsstart"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentcomplete"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentcreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentpause"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentprogress"
	"github.com/edlatam/lms-platform/internal/http/handlers/enrollment/enrollmentresume"
	"github.com/edlatam/lms-platform/internal/http/handlers/health"
	"github.com/edlatam/lms-platform/internal/http/handlers/lesson/lessoncreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/lesson/lessonlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/lesson/lessonread"
	"github.com/edlatam/lms-platform/internal/http/handlers/notification/notificationlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/notification/notificationmarkread"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/ordercancel"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/ordercreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/orderlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/orderpay"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/orderread"
	"github.com/edlatam/lms-platform/internal/http/handlers/order/orderrefund"
	"github.com/edlatam/lms-platform/internal/http/handlers/profile/profileme"
	"github.com/edlatam/lms-platform/internal/http/handlers/profile/profileremove"
	"github.com/edlatam/lms-platform/internal/http/handlers/profile/profileupdate"
	"github.com/edlatam/lms-platform/internal/http/handlers/subscription/invoicepay"
	"github.com/edlatam/lms-platform/internal/http/handlers/subscription/planlist"
	"github.com/edlatam/lms-platform/internal/http/handlers/subscription/subscriptioncancel"
	"github.com/edlatam/lms-platform/internal/http/handlers/subscription/subscriptioncreate"
	"github.com/edlatam/lms-platform/internal/http/handlers/subscription/subscriptionme"
	"github.com/edlatam/lms-platform/internal/http/middlewarectx"
	"github.com/edlatam/lms-platform/internal/models"
	assessmentservice "github.com/edlatam/lms-platform/internal/services/assessment"
	authservice "github.com/edlatam/lms-platform/internal/services/auth"
	complianceservice "github.com/edlatam/lms-platform/internal/services/compliance"
	courseservice "github.com/edlatam/lms-platform/internal/services/course"
	enrollmentservice "github.com/edlatam/lms-platform/internal/services/enrollment"
	lessonservice "github.com/edlatam/lms-platform/internal/services/lesson"
	notificationservice "github.com/edlatam/lms-platform/internal/services/notification"
	orderservice "github.com/edlatam/lms-platform/internal/services/order"
	profileservice "github.com/edlatam/lms-platform/internal/services/profile"
	subscriptionservice "github.com/edlatam/lms-platform/internal/services/subscription"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, cfg *config.Config, logger *slog.Logger,
	authService *authservice.AuthService,
	profileService *profileservice.ProfileService,
	courseService *courseservice.CourseService,
	lessonService *lessonservice.LessonService,
	enrollmentService *enrollmentservice.EnrollmentService,
	assessmentService *assessmentservice.AssessmentService,
	orderService *orderservice.OrderService,
	subscriptionService *subscriptionservice.SubscriptionService,
	notificationService *notificationservice.NotificationService,
	complianceService *complianceservice.ComplianceService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RateLimitRPS, cfg.RateLimitBurst))

		// Открытые конечные точки
		r.Get("/health", health.New().ServeHTTP)
		r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
		r.Post("/auth/verify-email", verifyemail.New(logger, authService).ServeHTTP)
		r.Get("/plans", planlist.New(logger, subscriptionService).ServeHTTP)

		// Каталог: идентификация необязательна, преподаватель видит
		// свои черновики, записанный студент видит закрытые уроки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.IdentityOptional(authService, logger))
			r.Get("/courses", courselist.New(logger, courseService).ServeHTTP)
			r.Get("/courses/{id}", courseread.New(logger, courseService).ServeHTTP)
			r.Get("/courses/{id}/lessons", lessonlist.New(logger, lessonService).ServeHTTP)
			r.Get("/courses/{id}/reviews", reviewlist.New(logger, courseService).ServeHTTP)
			r.Get("/lessons/{id}", lessonread.New(logger, lessonService).ServeHTTP)
		})

		// Группа с обязательной идентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.Identity(authService, logger))

			r.Get("/users/me", profileme.New(logger, profileService).ServeHTTP)
			r.Put("/users/me", profileupdate.New(logger, profileService).ServeHTTP)
			r.Delete("/users/me", profileremove.New(logger, authService).ServeHTTP)
			r.Get("/users/me/notifications", notificationlist.New(logger, notificationService).ServeHTTP)
			r.Post("/users/me/notifications/{id}/read", notificationmarkread.New(logger, notificationService).ServeHTTP)
			r.Post("/users/me/data-requests", datarightscreate.New(logger, complianceService).ServeHTTP)
			r.Get("/users/me/data-requests", datarightslist.New(logger, complianceService).ServeHTTP)

			r.Post("/enrollments", enrollmentcreate.New(logger, enrollmentService).ServeHTTP)
			r.Get("/enrollments", enrollmentlist.New(logger, enrollmentService).ServeHTTP)
			r.Patch("/enrollments/{id}/progress", enrollmentprogress.New(logger, enrollmentService).ServeHTTP)
			r.Post("/enrollments/{id}/complete", enrollmentcomplete.New(logger, enrollmentService).ServeHTTP)
			r.Post("/enrollments/{id}/pause", enrollmentpause.New(logger, enrollmentService).ServeHTTP)
			r.Post("/enrollments/{id}/resume", enrollmentresume.New(logger, enrollmentService).ServeHTTP)

			r.Post("/orders", ordercreate.New(logger, orderService).ServeHTTP)
			r.Get("/orders", orderlist.New(logger, orderService).ServeHTTP)
			r.Get("/orders/{id}", orderread.New(logger, orderService).ServeHTTP)
			r.Post("/orders/{id}/pay", orderpay.New(logger, orderService).ServeHTTP)
			r.Post("/orders/{id}/cancel", ordercancel.New(logger, orderService).ServeHTTP)
			r.Post("/orders/{id}/refund", orderrefund.New(logger, orderService).ServeHTTP)

			r.Post("/courses/{id}/reviews", reviewcreate.New(logger, courseService).ServeHTTP)

			r.Post("/subscriptions", subscriptioncreate.New(logger, subscriptionService).ServeHTTP)
			r.Get("/subscriptions/me", subscriptionme.New(logger, subscriptionService).ServeHTTP)
			r.Post("/subscriptions/{id}/cancel", subscriptioncancel.New(logger, subscriptionService).ServeHTTP)
			r.Post("/invoices/{id}/pay", invoicepay.New(logger, subscriptionService).ServeHTTP)

			r.Get("/courses/{id}/quizzes", quizlist.New(logger, assessmentService).ServeHTTP)
			r.Post("/quizzes/{id}/submissions", submissionstart.New(logger, assessmentService).ServeHTTP)
			r.Get("/quizzes/{id}/submissions", submissionlist.New(logger, assessmentService).ServeHTTP)
			r.Post("/submissions/{id}/submit", submissionsubmit.New(logger, assessmentService).ServeHTTP)

			// Конечные точки преподавателя
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleInstructor, models.RoleAdmin))
				r.Post("/courses", coursecreate.New(logger, courseService).ServeHTTP)
				r.Get("/courses/mine", coursemine.New(logger, courseService).ServeHTTP)
				r.Put("/courses/{id}", courseupdate.New(logger, courseService).ServeHTTP)
				r.Delete("/courses/{id}", courseremove.New(logger, courseService).ServeHTTP)
				r.Post("/courses/{id}/publish", coursepublish.New(logger, courseService).ServeHTTP)
				r.Post("/courses/{id}/lessons", lessoncreate.New(logger, lessonService).ServeHTTP)
				r.Post("/courses/{id}/quizzes", quizcreate.New(logger, assessmentService).ServeHTTP)
				r.Post("/submissions/{id}/grade", submissiongrade.New(logger, assessmentService).ServeHTTP)
			})

			// Конечные точки администратора
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
				r.Post("/data-requests/{id}/start", datarightsstart.New(logger, complianceService).ServeHTTP)
				r.Post("/data-requests/{id}/complete", datarightscomplete.New(logger, complianceService).ServeHTTP)
				r.Post("/data-requests/{id}/reject", datarightsreject.New(logger, complianceService).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
