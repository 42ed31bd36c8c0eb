package property

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/cuongbtq/property-be/internal/api/storage"
	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var (
	// ErrPropertyNotFound covers both missing properties and properties owned by another agent
	ErrPropertyNotFound = domain.ErrPropertyNotFound

	// ErrNoProperties is returned when an agent has no properties at all
	ErrNoProperties = errors.New("no properties found for agent")
)

// Store is the properties table
type Store interface {
	CreateProperty(ctx context.Context, p *model.Property) error
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	UpdateProperty(ctx context.Context, p *model.Property) error
	DeleteProperty(ctx context.Context, id string) error
	ListProperties(ctx context.Context, filter storage.PropertyFilter) ([]model.Property, error)
	FirstPropertyForAgent(ctx context.Context, agentID string) (*model.Property, error)
}

// Notifier queues the email sent after a property is created
type Notifier interface {
	SendPropertyCreatedEmail(ctx context.Context, p *model.Property, to mail.Recipient) mail.Notification
}

// CreateResult is the new property plus the outcome of queueing its notification
type CreateResult struct {
	Property     *model.Property
	Notification mail.Notification
}

// Page is one keyset page of properties
type Page struct {
	Properties []model.Property
	NextCursor *storage.PropertyCursor
}

type Service struct {
	store    Store
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		log:      log.With(slog.String("component", "property.service")),
		now:      time.Now,
	}
}

// Create stores a new property for agent and queues the created email.
// A failed notification never fails the create.
func (s *Service) Create(ctx context.Context, agent domain.Agent, in Input) (*CreateResult, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}

	p := &model.Property{
		ID:       uuid.New().String(),
		AgentID:  agent.ID,
		Country:  domain.DefaultCountry,
		Status:   domain.PropertyStatusAvailable,
		Features: model.StringList{},
		Images:   model.StringList{},
	}
	in.apply(p)
	if p.Status == domain.PropertyStatusSold {
		soldAt := s.now()
		p.SoldAt = &soldAt
	}

	if err := s.store.CreateProperty(ctx, p); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Property created successfully",
		slog.String("property_id", p.ID),
		slog.String("agent_id", agent.ID),
	)

	result := &CreateResult{Property: p}
	if s.notifier != nil {
		result.Notification = s.notifier.SendPropertyCreatedEmail(ctx, p, mail.Recipient{Email: agent.Email, Name: agent.Name})
	}

	return result, nil
}

// Get returns the property if agent owns it
func (s *Service) Get(ctx context.Context, agent domain.Agent, id string) (*model.Property, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrPropertyNotFound
	}

	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AgentID != agent.ID {
		return nil, ErrPropertyNotFound
	}

	return p, nil
}

// Update applies the supplied fields. Every field is optional.
func (s *Service) Update(ctx context.Context, agent domain.Agent, id string, in Input) (*model.Property, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, agent, id)
	if err != nil {
		return nil, err
	}

	previousStatus := p.Status
	in.apply(p)
	if p.Status != previousStatus {
		if p.Status == domain.PropertyStatusSold {
			soldAt := s.now()
			p.SoldAt = &soldAt
		} else {
			p.SoldAt = nil
		}
	}

	if err := s.store.UpdateProperty(ctx, p); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "Property updated", slog.String("property_id", p.ID))
	return p, nil
}

// Delete soft deletes the property if agent owns it
func (s *Service) Delete(ctx context.Context, agent domain.Agent, id string) error {
	if _, err := s.Get(ctx, agent, id); err != nil {
		return err
	}

	if err := s.store.DeleteProperty(ctx, id); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "Property deleted", slog.String("property_id", id))
	return nil
}

// List returns one page of the agent's properties, newest first
func (s *Service) List(ctx context.Context, agent domain.Agent, cursor *storage.PropertyCursor, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	properties, err := s.store.ListProperties(ctx, storage.PropertyFilter{
		AgentID:  agent.ID,
		PageSize: pageSize,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{Properties: properties}
	if len(properties) > pageSize {
		page.Properties = properties[:pageSize]
		last := page.Properties[pageSize-1]
		page.NextCursor = &storage.PropertyCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	return page, nil
}

// ListAll returns every property of the agent, newest first
func (s *Service) ListAll(ctx context.Context, agent domain.Agent) ([]model.Property, error) {
	return s.store.ListProperties(ctx, storage.PropertyFilter{AgentID: agent.ID})
}

// FirstForAgent returns a property to use for a test email
func (s *Service) FirstForAgent(ctx context.Context, agent domain.Agent) (*model.Property, error) {
	p, err := s.store.FirstPropertyForAgent(ctx, agent.ID)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return nil, ErrNoProperties
	}
	return p, err
}
