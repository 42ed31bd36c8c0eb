package dto

import (
	"time"

	"github.com/cuongbtq/property-be/internal/api/model"
)

type ListPropertiesRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListPropertiesResponse struct {
	Properties []PropertyDTO `json:"properties"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type PropertyDTO struct {
	ID           string     `json:"id"`
	AgentID      string     `json:"agent_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Address      string     `json:"address"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	ZipCode      string     `json:"zip_code"`
	Country      string     `json:"country"`
	Price        float64    `json:"price"`
	Bedrooms     *int       `json:"bedrooms"`
	Bathrooms    *int       `json:"bathrooms"`
	SquareFeet   *float64   `json:"square_feet"`
	PropertyType string     `json:"property_type"`
	Status       string     `json:"status"`
	Features     []string   `json:"features"`
	Images       []string   `json:"images"`
	IsFeatured   bool       `json:"is_featured"`
	SoldAt       *time.Time `json:"sold_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func NewPropertyDTO(p *model.Property) PropertyDTO {
	features := []string(p.Features)
	if features == nil {
		features = []string{}
	}
	images := []string(p.Images)
	if images == nil {
		images = []string{}
	}

	return PropertyDTO{
		ID:           p.ID,
		AgentID:      p.AgentID,
		Title:        p.Title,
		Description:  p.Description,
		Address:      p.Address,
		City:         p.City,
		State:        p.State,
		ZipCode:      p.ZipCode,
		Country:      p.Country,
		Price:        p.Price,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		SquareFeet:   p.SquareFeet,
		PropertyType: p.PropertyType,
		Status:       p.Status,
		Features:     features,
		Images:       images,
		IsFeatured:   p.IsFeatured,
		SoldAt:       p.SoldAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func NewPropertyDTOs(properties []model.Property) []PropertyDTO {
	out := make([]PropertyDTO, len(properties))
	for i := range properties {
		out[i] = NewPropertyDTO(&properties[i])
	}
	return out
}

type CreatePropertyResponse struct {
	PropertyDTO
	EmailNotification NotificationDTO `json:"email_notification"`
}

type NotificationDTO struct {
	Queued bool   `json:"queued"`
	JobID  string `json:"job_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

type TestEmailResponse struct {
	EmailSentTo         string `json:"email_sent_to"`
	PropertyUsedForTest string `json:"property_used_for_test"`
	EmailStatus         string `json:"email_status"`
	Transport           string `json:"transport"`
	MessageID           string `json:"message_id"`
}
