// Package services реализует отправителя уведомлений. Воркер читает
// очередь уведомлений, сохраняет строку в notifications.notifications
// и доставляет письмо по SMTP либо оставляет внутриплатформенное
// уведомление. Судьба доставки фиксируется в статусе строки.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	smtplib "github.com/edlatam/lms-platform/internal/lib/smtp"
	"github.com/edlatam/lms-platform/internal/lib/sl"
	"github.com/edlatam/lms-platform/internal/models"
)

// NotificationRepository описывает методы хранилища для учёта уведомлений.
type NotificationRepository interface {
	// UserExists сообщает, существует ли неудалённый пользователь.
	UserExists(ctx context.Context, userID string) (bool, error)
	// GetProfile возвращает профиль пользователя.
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	// CreateNotification сохраняет уведомление со статусом pending и возвращает его ID.
	CreateNotification(ctx context.Context, n models.Notification) (string, error)
	// MarkNotificationSent фиксирует успешную доставку.
	MarkNotificationSent(ctx context.Context, notificationID string) (int, error)
	// MarkNotificationFailed фиксирует неудачную доставку.
	MarkNotificationFailed(ctx context.Context, notificationID string) (int, error)
}

// Transport описывает SMTP транспорт отправителя.
type Transport interface {
	Connect() (smtplib.Client, error)
	GetSMTPUser() string
}

// NotificationSenderService обрабатывает сообщения очереди уведомлений.
type NotificationSenderService struct {
	repo      NotificationRepository
	transport Transport
	log       *slog.Logger
}

// NewNotificationSenderService создает новый экземпляр NotificationSenderService.
func NewNotificationSenderService(repo NotificationRepository, transport Transport,
	log *slog.Logger) *NotificationSenderService {
	return &NotificationSenderService{
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

// Темы писем по умолчанию, когда издатель не задал заголовок.
var subjects = map[string]string{
	models.TopicWelcome:          "Bienvenido a la plataforma",
	models.TopicEnrollmentActive: "Tu acceso al curso está activo",
	models.TopicOrderPaid:        "Confirmación de pago",
	models.TopicRenewalUpcoming:  "Tu suscripción se renueva pronto",
	models.TopicTrialEnding:      "Tu periodo de prueba está por terminar",
	models.TopicPaymentOverdue:   "Tienes un pago pendiente",
	models.TopicDataRightsDue:    "Estado de tu solicitud de datos",
}

// HandleMessage обрабатывает одно сообщение очереди уведомлений.
// Ошибка возвращает сообщение в очередь на повторную доставку.
func (s *NotificationSenderService) HandleMessage(body []byte) error {
	var msg models.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}
	ctx := context.Background()

	exists, err := s.repo.UserExists(ctx, msg.UserID)
	if err != nil {
		s.log.Error("failed to check recipient", sl.Err(err))
		return err
	}
	if !exists {
		s.log.Info("recipient not found, dropping notification",
			slog.String("user_id", msg.UserID), slog.String("topic", msg.Topic))
		return nil
	}

	channel := msg.Channel
	if channel == "" {
		channel = models.NotificationChannelEmail
	}
	notificationID, err := s.repo.CreateNotification(ctx, models.Notification{
		UserID:  msg.UserID,
		Topic:   msg.Topic,
		Title:   msg.Title,
		Body:    msg.Body,
		Channel: channel,
	})
	if err != nil {
		s.log.Error("failed to create notification", sl.Err(err))
		return err
	}

	if channel == models.NotificationChannelInApp {
		if _, err = s.repo.MarkNotificationSent(ctx, notificationID); err != nil {
			s.log.Error("failed to mark notification sent",
				slog.String("id", notificationID), sl.Err(err))
			return err
		}
		s.log.Info("in-app notification stored", slog.String("id", notificationID),
			slog.String("topic", msg.Topic))
		return nil
	}

	subject, bodyText := s.buildEmail(ctx, msg)
	if err = s.sendEmail([]string{msg.Email}, subject, bodyText); err != nil {
		if _, merr := s.repo.MarkNotificationFailed(ctx, notificationID); merr != nil {
			s.log.Error("failed to mark notification failed",
				slog.String("id", notificationID), sl.Err(merr))
		}
		return err
	}
	if _, err = s.repo.MarkNotificationSent(ctx, notificationID); err != nil {
		// Письмо уже ушло, возврат в очередь привёл бы к повторной отправке.
		s.log.Error("failed to mark notification sent",
			slog.String("id", notificationID), sl.Err(err))
	}
	return nil
}

func (s *NotificationSenderService) buildEmail(ctx context.Context, msg models.NotificationMessage) (string, string) {
	greeting := "Hola"
	if profile, err := s.repo.GetProfile(ctx, msg.UserID); err == nil && profile.FullName != "" {
		greeting = "Hola, " + profile.FullName
	}

	subject := msg.Title
	if subject == "" {
		subject = subjects[msg.Topic]
	}
	if subject == "" {
		subject = "Notificación de la plataforma"
	}

	bodyText := fmt.Sprintf("%s!\n\n%s\n\nEquipo de la plataforma", greeting, msg.Body)
	return subject, bodyText
}

func (s *NotificationSenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err = client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set mail sender", sl.Err(err))
		return fmt.Errorf("failed to set mail sender: %w", err)
	}

	for _, addr := range to {
		if err = client.Rcpt(addr); err != nil {
			s.log.Error("failed to set recipient", sl.Err(err))
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get write closer", sl.Err(err))
		return fmt.Errorf("failed to get write closer: %w", err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write message", sl.Err(err))
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close write closer", sl.Err(err))
		return fmt.Errorf("failed to close write closer: %w", err)
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("failed to quit SMTP client: %w", err)
	}

	s.log.Info("email sent successfully", "to", to)
	return nil
}
