package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/cuongbtq/property-be/internal/api/storage"
	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/cuongbtq/property-be/internal/property"
	"github.com/cuongbtq/property-be/internal/queue"
	"github.com/cuongbtq/property-be/internal/queue/reporter"
	"github.com/gin-gonic/gin"
)

// PropertyService is the property use cases exposed over HTTP
type PropertyService interface {
	Create(ctx context.Context, agent domain.Agent, in property.Input) (*property.CreateResult, error)
	Get(ctx context.Context, agent domain.Agent, id string) (*model.Property, error)
	Update(ctx context.Context, agent domain.Agent, id string, in property.Input) (*model.Property, error)
	Delete(ctx context.Context, agent domain.Agent, id string) error
	List(ctx context.Context, agent domain.Agent, cursor *storage.PropertyCursor, pageSize int) (*property.Page, error)
	ListAll(ctx context.Context, agent domain.Agent) ([]model.Property, error)
	FirstForAgent(ctx context.Context, agent domain.Agent) (*model.Property, error)
}

// DirectMailer sends an email synchronously
type DirectMailer interface {
	SendDirect(ctx context.Context, p *model.Property, to mail.Recipient) (*mail.SendResult, error)
	SenderName() string
}

// QueueReporter produces queue health and stats snapshots
type QueueReporter interface {
	Health(ctx context.Context) (*reporter.Health, error)
	Stats(ctx context.Context, queueName string, detailed bool) (map[string]*reporter.QueueStats, error)
}

// FailedJobStore manages jobs in the failed_jobs table
type FailedJobStore interface {
	ListFailed(ctx context.Context, queueName string, limit int) ([]queue.FailedJob, error)
	RetryFailed(ctx context.Context, id string) (*queue.Job, error)
	DeleteFailed(ctx context.Context, id string) error
}

// HealthChecker reports whether the database is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	DB          HealthChecker
	Properties  PropertyService
	Mailer      DirectMailer
	Reporter    QueueReporter
	FailedJobs  FailedJobStore
	Metrics     http.Handler // optional, served on /metrics
	ServiceName string
}

const agentContextKey = "agent"

// SetAgent stores the authenticated agent on the request context
func SetAgent(c *gin.Context, agent domain.Agent) {
	c.Set(agentContextKey, agent)
}

// AgentFromContext returns the agent stored by SetAgent
func AgentFromContext(c *gin.Context) (domain.Agent, bool) {
	v, ok := c.Get(agentContextKey)
	if !ok {
		return domain.Agent{}, false
	}
	agent, ok := v.(domain.Agent)
	return agent, ok
}
