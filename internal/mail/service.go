package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/cuongbtq/property-be/internal/queue"
)

// Job kinds handled by the email handlers
const (
	KindPropertyCreated = "send_property_created_email"
	KindSendEmail       = "send_email"
)

const (
	propertyCreatedTemplate = "property-created"
	propertyCreatedSubject  = "Property Created Successfully - "
	defaultBatchEmailType   = "batch"
)

// JobSubmitter is the producer side of the job queue
type JobSubmitter interface {
	SubmitKind(ctx context.Context, queueName, kind string, data any, policy queue.RetryPolicy, tags ...string) (string, error)
}

// Notification reports whether an email job was queued. A failed submission is
// carried in Err instead of being returned, so callers may ignore it.
type Notification struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"job_id,omitempty"`
	Err    error  `json:"-"`
}

// PropertyCreatedPayload is the job data for KindPropertyCreated
type PropertyCreatedPayload struct {
	PropertyID string    `json:"property_id"`
	Recipient  Recipient `json:"recipient"`
}

// EmailPayload is the job data for KindSendEmail
type EmailPayload struct {
	Message   Message `json:"message"`
	EmailType string  `json:"email_type"`
}

// BatchEmail is one entry of SendBatchEmails
type BatchEmail struct {
	Message   *Message
	Recipient Recipient
	Type      string
}

// EmailService queues email jobs and renders the emails they send
type EmailService struct {
	submitter JobSubmitter
	sender    Sender
	templates *TemplateService
	policy    queue.RetryPolicy
	log       *slog.Logger
	now       func() time.Time
}

func NewEmailService(submitter JobSubmitter, sender Sender, templates *TemplateService, policy queue.RetryPolicy, log *slog.Logger) *EmailService {
	return &EmailService{
		submitter: submitter,
		sender:    sender,
		templates: templates,
		policy:    policy,
		log:       log.With(slog.String("component", "mail.service")),
		now:       time.Now,
	}
}

// SendPropertyCreatedEmail queues the "property created" notification for p
func (s *EmailService) SendPropertyCreatedEmail(ctx context.Context, p *model.Property, to Recipient) Notification {
	payload := PropertyCreatedPayload{PropertyID: p.ID, Recipient: to}

	jobID, err := s.submitter.SubmitKind(ctx, queue.QueueEmails, KindPropertyCreated, payload, s.policy,
		"email", "type:property_created", "recipient:"+to.Email)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to queue property created email",
			slog.String("property_id", p.ID),
			slog.String("recipient", to.Email),
			slog.String("error", err.Error()),
		)
		return Notification{Err: err}
	}

	s.log.InfoContext(ctx, "Property created email queued",
		slog.String("job_id", jobID),
		slog.String("property_id", p.ID),
		slog.String("recipient", to.Email),
	)
	return Notification{Queued: true, JobID: jobID}
}

// SendEmail queues an already rendered message
func (s *EmailService) SendEmail(ctx context.Context, msg Message, to Recipient, emailType string) Notification {
	msg.To = to
	msg.Tags = []string{"email", "type:" + emailType, "recipient:" + to.Email}

	jobID, err := s.submitter.SubmitKind(ctx, queue.QueueEmails, KindSendEmail,
		EmailPayload{Message: msg, EmailType: emailType}, s.policy, msg.Tags...)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to queue email",
			slog.String("email_type", emailType),
			slog.String("recipient", to.Email),
			slog.String("error", err.Error()),
		)
		return Notification{Err: err}
	}

	s.log.InfoContext(ctx, "Email queued",
		slog.String("job_id", jobID),
		slog.String("email_type", emailType),
		slog.String("recipient", to.Email),
	)
	return Notification{Queued: true, JobID: jobID}
}

// SendBatchEmails queues each valid entry. Entries without a message or
// recipient are skipped and get no notification.
func (s *EmailService) SendBatchEmails(ctx context.Context, emails []BatchEmail) []Notification {
	notifications := make([]Notification, 0, len(emails))

	for i, email := range emails {
		if email.Message == nil || email.Recipient.Email == "" {
			s.log.WarnContext(ctx, "Invalid email data in batch", slog.Int("index", i))
			continue
		}

		emailType := email.Type
		if emailType == "" {
			emailType = defaultBatchEmailType
		}

		notifications = append(notifications, s.SendEmail(ctx, *email.Message, email.Recipient, emailType))
	}

	return notifications
}

// IsAvailable reports whether emails can be queued
func (s *EmailService) IsAvailable(ctx context.Context) bool {
	return s.submitter != nil && s.sender != nil
}

// SenderName names the transport used for direct sends
func (s *EmailService) SenderName() string {
	if s.sender == nil {
		return ""
	}
	return s.sender.Name()
}

// SendDirect renders and sends the property created email without the queue
func (s *EmailService) SendDirect(ctx context.Context, p *model.Property, to Recipient) (*SendResult, error) {
	msg, err := s.RenderPropertyCreated(p, to)
	if err != nil {
		return nil, err
	}
	return s.sender.Send(ctx, msg)
}

// RenderPropertyCreated builds the property created email for p
func (s *EmailService) RenderPropertyCreated(p *model.Property, to Recipient) (Message, error) {
	return renderPropertyCreated(s.templates, p, to, s.now())
}

func renderPropertyCreated(templates *TemplateService, p *model.Property, to Recipient, now time.Time) (Message, error) {
	agentName := to.Name
	if agentName == "" {
		agentName = to.Email
	}

	rendered, err := templates.Render(propertyCreatedTemplate, TemplateContext{
		"agent_name": agentName,
		"property":   propertyContext(p),
		"year":       now.Year(),
	})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render property created email: %w", err)
	}

	return Message{
		To:      to,
		Subject: propertyCreatedSubject + p.Title,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Tags:    []string{"email", "type:property_created", "recipient:" + to.Email},
	}, nil
}

func propertyContext(p *model.Property) map[string]interface{} {
	ctx := map[string]interface{}{
		"title":         p.Title,
		"address":       p.Address,
		"city":          p.City,
		"state":         p.State,
		"zip_code":      p.ZipCode,
		"price":         p.Price,
		"property_type": p.PropertyType,
		"bedrooms":      orNA(p.Bedrooms),
		"bathrooms":     orNA(p.Bathrooms),
		"status":        p.Status,
		"features":      []string(p.Features),
		"created_at":    p.CreatedAt,
	}
	if p.SquareFeet != nil && *p.SquareFeet > 0 {
		ctx["square_feet"] = *p.SquareFeet
	}
	return ctx
}

func orNA(v *int) string {
	if v == nil {
		return "N/A"
	}
	return strconv.Itoa(*v)
}
