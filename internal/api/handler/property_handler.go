package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/dto"
	"github.com/cuongbtq/property-be/internal/mail"
	"github.com/cuongbtq/property-be/internal/property"
	"github.com/gin-gonic/gin"
)

// PropertyHandler handles property-related HTTP requests
type PropertyHandler struct {
	logger     *slog.Logger
	properties PropertyService
	mailer     DirectMailer
}

func NewPropertyHandler(deps *Dependencies) *PropertyHandler {
	return &PropertyHandler{
		logger:     deps.Logger,
		properties: deps.Properties,
		mailer:     deps.Mailer,
	}
}

// ListProperties handles GET /api/v1/properties
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	var req dto.ListPropertiesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid query parameters", err.Error())
		return
	}

	cursor, err := DecodePropertyCursor(req.Cursor)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid cursor", err.Error())
		return
	}

	page, err := h.properties.List(c.Request.Context(), agent, cursor, req.PageSize)
	if err != nil {
		h.logger.Error("Failed to list properties", slog.String("agent_id", agent.ID), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to retrieve properties", "An error occurred while fetching properties")
		return
	}

	resp := dto.ListPropertiesResponse{Properties: dto.NewPropertyDTOs(page.Properties)}
	if page.NextCursor != nil {
		resp.NextCursor = EncodePropertyCursor(page.NextCursor)
	}

	message := ""
	if len(page.Properties) == 0 && cursor == nil {
		message = "No properties found"
	}
	respondSuccess(c, http.StatusOK, message, resp)
}

// CreateProperty handles POST /api/v1/properties
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	var in property.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	result, err := h.properties.Create(c.Request.Context(), agent, in)
	if err != nil {
		h.writeServiceError(c, err, "Failed to create property", "An error occurred while creating the property")
		return
	}

	notification := dto.NotificationDTO{Queued: result.Notification.Queued, JobID: result.Notification.JobID}
	if result.Notification.Err != nil {
		notification.Error = "Email notification could not be queued"
	}

	respondSuccess(c, http.StatusCreated, "Property created successfully", dto.CreatePropertyResponse{
		PropertyDTO:       dto.NewPropertyDTO(result.Property),
		EmailNotification: notification,
	})
}

// GetProperty handles GET /api/v1/properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	p, err := h.properties.Get(c.Request.Context(), agent, c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err, "Failed to retrieve property", "An error occurred while fetching the property")
		return
	}

	respondSuccess(c, http.StatusOK, "", dto.NewPropertyDTO(p))
}

// UpdateProperty handles PUT and PATCH /api/v1/properties/:id
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	var in property.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	p, err := h.properties.Update(c.Request.Context(), agent, c.Param("id"), in)
	if err != nil {
		h.writeServiceError(c, err, "Failed to update property", "An error occurred while updating the property")
		return
	}

	respondSuccess(c, http.StatusOK, "Property updated successfully", dto.NewPropertyDTO(p))
}

// DeleteProperty handles DELETE /api/v1/properties/:id
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	if err := h.properties.Delete(c.Request.Context(), agent, c.Param("id")); err != nil {
		h.writeServiceError(c, err, "Failed to delete property", "An error occurred while deleting the property")
		return
	}

	respondSuccess(c, http.StatusOK, "Property deleted successfully", nil)
}

// MyProperties handles GET /api/v1/my-properties
func (h *PropertyHandler) MyProperties(c *gin.Context) {
	agent, _ := AgentFromContext(c)

	properties, err := h.properties.ListAll(c.Request.Context(), agent)
	if err != nil {
		h.logger.Error("Failed to list agent properties", slog.String("agent_id", agent.ID), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to retrieve properties", "An error occurred while fetching properties")
		return
	}

	if len(properties) == 0 {
		respondSuccess(c, http.StatusOK, "No properties found for this agent", []dto.PropertyDTO{})
		return
	}

	respondSuccess(c, http.StatusOK, "", dto.NewPropertyDTOs(properties))
}

// TestEmail handles POST /api/v1/test-email.
// It sends the property created email for the agent's first property without the queue.
func (h *PropertyHandler) TestEmail(c *gin.Context) {
	agent, _ := AgentFromContext(c)
	ctx := c.Request.Context()

	h.logger.Info("Test email endpoint called",
		slog.String("agent_id", agent.ID),
		slog.String("agent_email", agent.Email),
	)

	p, err := h.properties.FirstForAgent(ctx, agent)
	if errors.Is(err, property.ErrNoProperties) {
		respondError(c, http.StatusNotFound, "No properties found for testing email", err.Error())
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Test email endpoint failed", err.Error())
		return
	}

	result, err := h.mailer.SendDirect(ctx, p, mail.Recipient{Email: agent.Email, Name: agent.Name})
	if err != nil {
		h.logger.Error("Test email failed",
			slog.String("agent_email", agent.Email),
			slog.String("transport", h.mailer.SenderName()),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "Test email sending failed", err.Error())
		return
	}

	h.logger.Info("Test email sent successfully",
		slog.String("agent_email", agent.Email),
		slog.String("property_id", p.ID),
	)

	respondSuccess(c, http.StatusOK, "Test email sent successfully", dto.TestEmailResponse{
		EmailSentTo:         agent.Email,
		PropertyUsedForTest: p.Title,
		EmailStatus:         "Email sent directly (no queue)",
		Transport:           h.mailer.SenderName(),
		MessageID:           result.MessageID,
	})
}

func (h *PropertyHandler) writeServiceError(c *gin.Context, err error, message, detail string) {
	var verr *property.ValidationError
	switch {
	case errors.As(err, &verr):
		h.logger.Warn("Property validation failed", slog.Any("errors", verr.Errors))
		respondValidationError(c, verr.Errors)
	case errors.Is(err, domain.ErrPropertyNotFound):
		respondError(c, http.StatusNotFound, "Property not found", "The requested property does not exist or you do not have access to it")
	default:
		h.logger.Error(message, slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, message, detail)
	}
}
