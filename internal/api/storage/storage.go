package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/jmoiron/sqlx"
)

const propertyColumns = `
	id, agent_id, title, description, address, city, state, zip_code, country,
	price, bedrooms, bathrooms, square_feet, property_type, status,
	features, images, is_featured, sold_at, created_at, updated_at`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) CreateProperty(ctx context.Context, p *model.Property) error {
	query := `
		INSERT INTO properties (
			id, agent_id, title, description, address, city, state, zip_code, country,
			price, bedrooms, bathrooms, square_feet, property_type, status,
			features, images, is_featured, sold_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19
		)
		RETURNING created_at, updated_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		p.ID, p.AgentID, p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode, p.Country,
		p.Price, p.Bedrooms, p.Bathrooms, p.SquareFeet, p.PropertyType, p.Status,
		p.Features, p.Images, p.IsFeatured, p.SoldAt,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}

	return nil
}

func (s *Storage) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	var p model.Property
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE id = $1 AND deleted_at IS NULL
	`

	err := s.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return &p, nil
}

// UpdateProperty writes every mutable column of p and refreshes p.UpdatedAt
func (s *Storage) UpdateProperty(ctx context.Context, p *model.Property) error {
	query := `
		UPDATE properties SET
			title = $2, description = $3, address = $4, city = $5, state = $6,
			zip_code = $7, country = $8, price = $9, bedrooms = $10, bathrooms = $11,
			square_feet = $12, property_type = $13, status = $14, features = $15,
			images = $16, is_featured = $17, sold_at = $18, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		p.ID, p.Title, p.Description, p.Address, p.City, p.State,
		p.ZipCode, p.Country, p.Price, p.Bedrooms, p.Bathrooms,
		p.SquareFeet, p.PropertyType, p.Status, p.Features,
		p.Images, p.IsFeatured, p.SoldAt,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrPropertyNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update property: %w", err)
	}

	return nil
}

func (s *Storage) DeleteProperty(ctx context.Context, id string) error {
	query := `
		UPDATE properties SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete property: %w", err)
	}
	if rows == 0 {
		return domain.ErrPropertyNotFound
	}

	return nil
}

type PropertyFilter struct {
	AgentID  string
	PageSize int
	Cursor   *PropertyCursor
}

type PropertyCursor struct {
	CreatedAt time.Time
	ID        string
}

// ListProperties returns up to PageSize+1 rows so callers can detect a next page.
// A zero PageSize returns every matching row.
func (s *Storage) ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, error) {
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	argIdx := 1

	if filter.AgentID != "" {
		query += fmt.Sprintf(" AND agent_id = $%d", argIdx)
		args = append(args, filter.AgentID)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.PageSize+1)
	}

	properties := []model.Property{}
	err := s.db.SelectContext(ctx, &properties, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	return properties, nil
}

// FirstPropertyForAgent returns the agent's oldest live property
func (s *Storage) FirstPropertyForAgent(ctx context.Context, agentID string) (*model.Property, error) {
	var p model.Property
	query := `SELECT` + propertyColumns + `
		FROM properties
		WHERE agent_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`

	err := s.db.GetContext(ctx, &p, query, agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPropertyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}

	return &p, nil
}
