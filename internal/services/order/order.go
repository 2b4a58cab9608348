// Package services содержит бизнес-логику заказов на покупку курсов.
// Цена фиксируется на момент заказа, оплата активирует запись на курс,
// возврат помечает её refunded.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/edlatam/lms-platform/internal/models"
	"github.com/edlatam/lms-platform/internal/storage/repository"
)

// ErrCourseFree возвращается при попытке оформить заказ на бесплатный
// курс, на него записываются напрямую.
var ErrCourseFree = errors.New("course is free")

// OrderRepository описывает методы для работы с заказами в хранилище.
type OrderRepository interface {
	// CreateOrder создаёт заказ и возвращает его ID и номер.
	CreateOrder(ctx context.Context, order models.Order) (string, string, error)
	// GetOrder возвращает заказ по идентификатору.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	// ListUserOrders возвращает заказы пользователя.
	ListUserOrders(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error)
	// MarkOrderPaid переводит ожидающий заказ в paid.
	MarkOrderPaid(ctx context.Context, orderID, userID string) (int, error)
	// MarkOrderCancelled переводит ожидающий заказ в cancelled.
	MarkOrderCancelled(ctx context.Context, orderID, userID string) (int, error)
	// MarkOrderRefunded переводит оплаченный заказ в refunded.
	MarkOrderRefunded(ctx context.Context, orderID string) (int, error)
	// OrderPaidExists проверяет оплаченный заказ пользователя на курс.
	OrderPaidExists(ctx context.Context, userID, courseID string) (bool, error)
	// EnrollmentExistsActive проверяет действующую запись на курс.
	EnrollmentExistsActive(ctx context.Context, userID, courseID string) (bool, error)
	// GetCourse возвращает неудалённый курс по идентификатору.
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	// GetUserByID возвращает неудалённого пользователя по идентификатору.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	// GetEnrollmentByUserCourse возвращает запись пользователя на курс.
	GetEnrollmentByUserCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	// CreateEnrollment записывает пользователя на курс.
	CreateEnrollment(ctx context.Context, enrollment models.Enrollment) (string, error)
	// ReactivateEnrollment возобновляет возвращённую запись.
	ReactivateEnrollment(ctx context.Context, userID, courseID string, expiresAt *time.Time) (int, error)
	// RefundEnrollment помечает запись возвращённой.
	RefundEnrollment(ctx context.Context, userID, courseID string) (int, error)
}

// Events описывает публикацию доменных событий и уведомлений.
type Events interface {
	Record(event models.Event)
	Notify(msg models.NotificationMessage)
}

// OrderService реализует бизнес-логику заказов.
type OrderService struct {
	repo   OrderRepository
	events Events
	log    *slog.Logger
}

// NewOrderService создает новый экземпляр OrderService.
func NewOrderService(repo OrderRepository, events Events, log *slog.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		events: events,
		log:    log,
	}
}

// Create оформляет заказ на опубликованный платный курс с фиксацией
// текущей цены. Курс, уже доступный пользователю, повторно не продаётся.
func (s *OrderService) Create(ctx context.Context, userID string, req models.DummyOrder) (*models.Order, error) {
	course, err := s.repo.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if !course.IsPublished {
		return nil, repository.ErrNotFound
	}
	if course.PriceCents == 0 {
		return nil, ErrCourseFree
	}

	enrolled, err := s.repo.EnrollmentExistsActive(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, repository.ErrAlreadyExists
	}
	paid, err := s.repo.OrderPaidExists(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, repository.ErrAlreadyExists
	}

	order := models.Order{
		UserID:      userID,
		CourseID:    course.ID,
		AmountCents: course.PriceCents,
		Currency:    course.Currency,
	}
	id, number, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.log.Info("created order", slog.String("id", id), slog.String("number", number))

	return s.repo.GetOrder(ctx, id)
}

// Get возвращает заказ его владельцу.
func (s *OrderService) Get(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

// ListMine возвращает заказы пользователя, новые первыми.
func (s *OrderService) ListMine(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	return s.repo.ListUserOrders(ctx, userID, limit, offset)
}

// Pay фиксирует оплату ожидающего заказа и открывает доступ к курсу:
// создаёт запись или возобновляет возвращённую. Вызывается платёжным
// шлюзом после подтверждения списания.
func (s *OrderService) Pay(ctx context.Context, userID, orderID string) error {
	count, err := s.repo.MarkOrderPaid(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, orderID, userID)
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	s.log.Info("order paid", slog.String("id", orderID), slog.String("number", order.OrderNumber))

	if err := s.activateEnrollment(ctx, userID, order.CourseID); err != nil {
		s.log.Error("failed to activate enrollment after payment",
			slog.String("order_id", orderID), slog.Any("err", err))
	}

	s.recordOrderEvent(models.EventOrderPaid, order)
	s.notifyPaid(ctx, order)
	return nil
}

// Cancel отменяет ожидающий заказ.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) error {
	count, err := s.repo.MarkOrderCancelled(ctx, orderID, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return s.transitionError(ctx, orderID, userID)
	}
	s.log.Info("order cancelled", slog.String("id", orderID))
	return nil
}

// Refund возвращает оплаченный заказ и помечает запись на курс
// возвращённой. Прогресс записи сохраняется на случай повторной покупки.
func (s *OrderService) Refund(ctx context.Context, userID, orderID string) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return repository.ErrNotFound
	}

	count, err := s.repo.MarkOrderRefunded(ctx, orderID)
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrInvalidTransition
	}
	s.log.Info("order refunded", slog.String("id", orderID))

	if _, err := s.repo.RefundEnrollment(ctx, userID, order.CourseID); err != nil {
		s.log.Error("failed to mark enrollment refunded",
			slog.String("order_id", orderID), slog.Any("err", err))
	}

	s.recordOrderEvent(models.EventOrderRefunded, order)
	return nil
}

// activateEnrollment открывает доступ к курсу после оплаты. Срок доступа
// отсчитывается заново от момента оплаты.
func (s *OrderService) activateEnrollment(ctx context.Context, userID, courseID string) error {
	course, err := s.repo.GetCourse(ctx, courseID)
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if course.AccessDays != nil {
		t := time.Now().UTC().AddDate(0, 0, *course.AccessDays)
		expiresAt = &t
	}

	enrollment, err := s.repo.GetEnrollmentByUserCourse(ctx, userID, courseID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		_, err = s.repo.CreateEnrollment(ctx, models.Enrollment{
			UserID:    userID,
			CourseID:  courseID,
			Status:    models.EnrollmentStatusActive,
			ExpiresAt: expiresAt,
		})
		return err
	}

	switch enrollment.Status {
	case models.EnrollmentStatusRefunded, models.EnrollmentStatusExpired:
		_, err = s.repo.ReactivateEnrollment(ctx, userID, courseID, expiresAt)
		return err
	default:
		s.log.Info("enrollment already open", slog.String("user_id", userID),
			slog.String("course_id", courseID))
		return nil
	}
}

func (s *OrderService) transitionError(ctx context.Context, orderID, userID string) error {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return repository.ErrNotFound
	}
	return repository.ErrInvalidTransition
}

func (s *OrderService) recordOrderEvent(eventType string, order *models.Order) {
	entity := "order"
	payload, err := json.Marshal(map[string]any{
		"course_id":    order.CourseID,
		"amount_cents": order.AmountCents,
		"currency":     order.Currency,
	})
	if err != nil {
		s.log.Warn("failed to marshal event payload", slog.Any("err", err))
		payload = nil
	}
	s.events.Record(models.Event{
		EventType:  eventType,
		UserID:     &order.UserID,
		EntityType: &entity,
		EntityID:   &order.ID,
		Payload:    payload,
	})
}

func (s *OrderService) notifyPaid(ctx context.Context, order *models.Order) {
	user, err := s.repo.GetUserByID(ctx, order.UserID)
	if err != nil {
		s.log.Warn("failed to load user for notification", slog.Any("err", err))
		return
	}
	course, err := s.repo.GetCourse(ctx, order.CourseID)
	if err != nil {
		s.log.Warn("failed to load course for notification", slog.Any("err", err))
		return
	}

	amount := strconv.FormatFloat(float64(order.AmountCents)/100, 'f', 2, 64)
	s.events.Notify(models.NotificationMessage{
		UserID: order.UserID,
		Email:  user.Email,
		Topic:  models.TopicOrderPaid,
		Title:  "Pago confirmado",
		Body: "Recibimos tu pago de " + amount + " " + order.Currency +
			" por el curso «" + course.Title + "». Ya tienes acceso completo, ¡buen aprendizaje!",
	})
}
