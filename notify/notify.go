package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
)

// Notification type names, matching schemas.notification.NotificationType.
const (
	TypeShareReceived = "share_received"
	TypeShareAccessed = "share_accessed"
)

// Service persists in-app notifications and publishes them to the
// real-time bus, matching NotificationService.
type Service struct {
	store cluster.MetadataStore
	bus   *Bus
}

func New(store cluster.MetadataStore, bus *Bus) *Service {
	return &Service{store: store, bus: bus}
}

// Create inserts a notification and fans it out over the bus, matching
// create_notification plus publish_notification_event.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, notifType, title, body string, data map[string]interface{}) (*cluster.Notification, error) {
	n := &cluster.Notification{
		ID:     uuid.New(),
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	if s.bus != nil {
		s.bus.Publish(UserChannel(userID.String()), EventNotificationNew, map[string]interface{}{
			"notification_id":  n.ID.String(),
			"notification_type": notifType,
			"title":            title,
			"message":          body,
		})
	}
	return n, nil
}

// CreateShareReceived matches create_share_notification.
func (s *Service) CreateShareReceived(ctx context.Context, recipientID uuid.UUID, sharedByName, targetType, targetName, shareURL string, shareID, targetID uuid.UUID, shareType string) (*cluster.Notification, error) {
	title := fmt.Sprintf("%s shared a %s with you", sharedByName, targetType)
	body := fmt.Sprintf("%q has been shared with you.", targetName)
	return s.Create(ctx, recipientID, TypeShareReceived, title, body, map[string]interface{}{
		"share_id":       shareID.String(),
		"share_type":     shareType,
		"target_type":    targetType,
		"target_id":      targetID.String(),
		"shared_by_name": sharedByName,
		"action_url":     shareURL,
	})
}

// CreateShareAccessed matches create_share_access_notification.
func (s *Service) CreateShareAccessed(ctx context.Context, ownerID, shareID uuid.UUID, targetName, visitorIP string) (*cluster.Notification, error) {
	title := "Your share link was accessed"
	body := fmt.Sprintf("Someone accessed your shared %q.", targetName)
	return s.Create(ctx, ownerID, TypeShareAccessed, title, body, map[string]interface{}{
		"share_id":   shareID.String(),
		"visitor_ip": visitorIP,
	})
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*cluster.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkNotificationRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

// EmailConfig mirrors EmailService's SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	UseTLS   bool
	From     string
	FromName string
}

// EmailMessage mirrors EmailNotification.
type EmailMessage struct {
	ToEmail  string
	ToName   string
	Subject  string
	BodyText string
	BodyHTML string
	ReplyTo  string
	CC       []string
}

// EmailSender delivers mail through an SMTP relay using only
// net/smtp — no SMTP client appears anywhere in the example pack, so
// this ambient boundary stays on the standard library rather than
// inventing a dependency the corpus never reaches for.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send delivers one email, matching EmailService.send_email. A
// delivery failure is logged and returned as false rather than an
// error, matching the original's best-effort boolean return.
func (e *EmailSender) Send(msg EmailMessage) bool {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.User != "" {
		auth = smtp.PlainAuth("", e.cfg.User, e.cfg.Password, e.cfg.Host)
	}

	to := msg.ToEmail
	recipients := append([]string{msg.ToEmail}, msg.CC...)

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s <%s>\r\n", e.cfg.FromName, e.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", to)
	if msg.ReplyTo != "" {
		fmt.Fprintf(&body, "Reply-To: %s\r\n", msg.ReplyTo)
	}
	if len(msg.CC) > 0 {
		fmt.Fprintf(&body, "Cc: %s\r\n", strings.Join(msg.CC, ", "))
	}
	fmt.Fprintf(&body, "Subject: %s\r\n", msg.Subject)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	body.WriteString(msg.BodyHTML)

	if err := smtp.SendMail(addr, auth, e.cfg.From, recipients, []byte(body.String())); err != nil {
		log.Error().Err(err).Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("email send failed")
		return false
	}
	log.Info().Str("to", msg.ToEmail).Str("subject", msg.Subject).Msg("email sent")
	return true
}

// SendShareNotification matches send_share_notification's HTML
// template composition.
func (e *EmailSender) SendShareNotification(recipientEmail, recipientName, sharedByName, targetType, targetName, shareURL, message string) bool {
	subject := fmt.Sprintf("%s shared %q with you", sharedByName, targetName)
	greeting := "Hi,"
	if recipientName != "" {
		greeting = fmt.Sprintf("Hi %s,", recipientName)
	}
	var msgLine string
	if message != "" {
		msgLine = fmt.Sprintf("<p><em>%q</em></p>", message)
	}
	html := fmt.Sprintf(`<html><body>
<p>%s</p>
<p><strong>%s</strong> has shared a %s with you:</p>
<p><strong>%s</strong></p>
%s
<p><a href="%s">View Shared %s</a></p>
</body></html>`, greeting, sharedByName, targetType, targetName, msgLine, shareURL, targetType)

	return e.Send(EmailMessage{
		ToEmail:  recipientEmail,
		ToName:   recipientName,
		Subject:  subject,
		BodyHTML: html,
	})
}

// SendShareAccessNotification matches send_share_access_notification,
// sent to a share's owner when a visitor accesses it.
func (e *EmailSender) SendShareAccessNotification(ownerEmail, ownerName, targetName, shareURL, visitorIP string) bool {
	subject := fmt.Sprintf("Your shared %q was accessed", targetName)
	greeting := "Hi,"
	if ownerName != "" {
		greeting = fmt.Sprintf("Hi %s,", ownerName)
	}
	var ipLine string
	if visitorIP != "" {
		ipLine = fmt.Sprintf("<p>Accessed from IP address: %s</p>", visitorIP)
	}
	html := fmt.Sprintf(`<html><body>
<p>%s</p>
<p>Your shared %q was just accessed.</p>
%s
<p><a href="%s">View Share</a></p>
</body></html>`, greeting, targetName, ipLine, shareURL)

	return e.Send(EmailMessage{
		ToEmail:  ownerEmail,
		ToName:   ownerName,
		Subject:  subject,
		BodyHTML: html,
	})
}
