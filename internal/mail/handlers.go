package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/cuongbtq/property-be/internal/queue"
)

const defaultReleaseDelay = time.Minute

// PropertyLookup loads the property a queued email refers to
type PropertyLookup interface {
	GetProperty(ctx context.Context, id string) (*model.Property, error)
}

// PropertyCreatedHandler sends the email queued by SendPropertyCreatedEmail
type PropertyCreatedHandler struct {
	properties   PropertyLookup
	sender       Sender
	templates    *TemplateService
	releaseDelay time.Duration
	log          *slog.Logger
	now          func() time.Time
}

func NewPropertyCreatedHandler(properties PropertyLookup, sender Sender, templates *TemplateService, releaseDelay time.Duration, log *slog.Logger) *PropertyCreatedHandler {
	if releaseDelay <= 0 {
		releaseDelay = defaultReleaseDelay
	}
	return &PropertyCreatedHandler{
		properties:   properties,
		sender:       sender,
		templates:    templates,
		releaseDelay: releaseDelay,
		log:          log.With(slog.String("component", "mail.property_created")),
		now:          time.Now,
	}
}

func (h *PropertyCreatedHandler) Handle(ctx context.Context, job *queue.Job) error {
	var payload PropertyCreatedPayload
	if err := job.Payload.Decode(&payload); err != nil {
		return err
	}

	h.log.InfoContext(ctx, "Starting to send property created email",
		slog.String("job_id", job.ID),
		slog.String("property_id", payload.PropertyID),
		slog.String("recipient", payload.Recipient.Email),
		slog.Int("attempt", job.Attempts+1),
	)

	property, err := h.properties.GetProperty(ctx, payload.PropertyID)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return queue.NewPermanentError(fmt.Errorf("property %s no longer exists", payload.PropertyID))
	}
	if err != nil {
		return err
	}

	msg, err := renderPropertyCreated(h.templates, property, payload.Recipient, h.now())
	if err != nil {
		return queue.NewPermanentError(err)
	}

	result, err := h.sender.Send(ctx, msg)
	if errors.Is(err, ErrSenderDisabled) {
		h.log.WarnContext(ctx, "Email sending disabled, releasing job", slog.String("job_id", job.ID))
		return queue.Release(h.releaseDelay)
	}
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "Property created email sent successfully",
		slog.String("job_id", job.ID),
		slog.String("property_id", property.ID),
		slog.String("recipient", payload.Recipient.Email),
		slog.String("message_id", result.MessageID),
	)
	return nil
}

func (h *PropertyCreatedHandler) Failed(ctx context.Context, job *queue.Job, cause error) error {
	var payload PropertyCreatedPayload
	_ = job.Payload.Decode(&payload)

	h.log.ErrorContext(ctx, "Property created email job failed permanently",
		slog.String("job_id", job.ID),
		slog.String("property_id", payload.PropertyID),
		slog.String("recipient", payload.Recipient.Email),
		slog.Int("attempts", job.Attempts+1),
		slog.String("error", cause.Error()),
	)
	return nil
}

// GenericEmailHandler sends messages queued by SendEmail
type GenericEmailHandler struct {
	sender       Sender
	releaseDelay time.Duration
	log          *slog.Logger
}

func NewGenericEmailHandler(sender Sender, releaseDelay time.Duration, log *slog.Logger) *GenericEmailHandler {
	if releaseDelay <= 0 {
		releaseDelay = defaultReleaseDelay
	}
	return &GenericEmailHandler{
		sender:       sender,
		releaseDelay: releaseDelay,
		log:          log.With(slog.String("component", "mail.generic")),
	}
}

func (h *GenericEmailHandler) Handle(ctx context.Context, job *queue.Job) error {
	var payload EmailPayload
	if err := job.Payload.Decode(&payload); err != nil {
		return err
	}
	if payload.Message.To.Email == "" {
		return queue.NewPermanentError(errors.New("email recipient is missing"))
	}

	h.log.InfoContext(ctx, "Starting to send email",
		slog.String("job_id", job.ID),
		slog.String("email_type", payload.EmailType),
		slog.String("recipient", payload.Message.To.Email),
		slog.Int("attempt", job.Attempts+1),
	)

	result, err := h.sender.Send(ctx, payload.Message)
	if errors.Is(err, ErrSenderDisabled) {
		h.log.WarnContext(ctx, "Email sending disabled, releasing job", slog.String("job_id", job.ID))
		return queue.Release(h.releaseDelay)
	}
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "Email sent successfully",
		slog.String("job_id", job.ID),
		slog.String("email_type", payload.EmailType),
		slog.String("recipient", payload.Message.To.Email),
		slog.String("message_id", result.MessageID),
	)
	return nil
}

func (h *GenericEmailHandler) Failed(ctx context.Context, job *queue.Job, cause error) error {
	var payload EmailPayload
	_ = job.Payload.Decode(&payload)

	h.log.ErrorContext(ctx, "Email job failed permanently",
		slog.String("job_id", job.ID),
		slog.String("email_type", payload.EmailType),
		slog.String("recipient", payload.Message.To.Email),
		slog.Int("attempts", job.Attempts+1),
		slog.String("error", cause.Error()),
	)
	return nil
}
