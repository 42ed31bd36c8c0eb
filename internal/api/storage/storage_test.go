package storage

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cuongbtq/property-be/internal/api/domain"
	"github.com/cuongbtq/property-be/internal/api/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres")), mock
}

var propertyRowColumns = []string{
	"id", "agent_id", "title", "description", "address", "city", "state", "zip_code", "country",
	"price", "bedrooms", "bathrooms", "square_feet", "property_type", "status",
	"features", "images", "is_featured", "sold_at", "created_at", "updated_at",
}

func propertyRow(rows *sqlmock.Rows, id, agentID string, createdAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, agentID, "Lake House", "Quiet lake house", "1 Shore Rd", "Austin", "TX", "73301", "USA",
		"450000.00", 3, nil, "1850.50", domain.PropertyTypeHouse, domain.PropertyStatusAvailable,
		[]byte(`["dock","garage"]`), []byte(`[]`), false, nil, createdAt, createdAt,
	)
}

func TestStorage_CreateProperty(t *testing.T) {
	s, mock := newMockStorage(t)
	now := time.Now()

	p := &model.Property{
		ID:           "9b2f4c1e-6d3a-4e8b-a1f7-3c5d2e9b8a10",
		AgentID:      "a3c1f0de-5b7e-4c2a-9d8f-1e6b4a2c7d90",
		Title:        "Lake House",
		Country:      domain.DefaultCountry,
		Price:        450000,
		PropertyType: domain.PropertyTypeHouse,
		Status:       domain.PropertyStatusAvailable,
		Features:     model.StringList{"dock"},
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO properties")).
		WithArgs(
			p.ID, p.AgentID, p.Title, "", "", "", "", "", "USA",
			450000.0, nil, nil, nil, "house", "available",
			[]byte(`["dock"]`), []byte(`[]`), false, nil,
		).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	err := s.CreateProperty(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetProperty(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, mock := newMockStorage(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND deleted_at IS NULL")).
			WithArgs("p-1").
			WillReturnRows(propertyRow(sqlmock.NewRows(propertyRowColumns), "p-1", "agent-1", now))

		p, err := s.GetProperty(context.Background(), "p-1")

		require.NoError(t, err)
		assert.Equal(t, "p-1", p.ID)
		assert.Equal(t, 450000.0, p.Price)
		require.NotNil(t, p.Bedrooms)
		assert.Equal(t, 3, *p.Bedrooms)
		assert.Nil(t, p.Bathrooms)
		require.NotNil(t, p.SquareFeet)
		assert.Equal(t, 1850.5, *p.SquareFeet)
		assert.Equal(t, model.StringList{"dock", "garage"}, p.Features)
		assert.Empty(t, p.Images)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM properties")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		p, err := s.GetProperty(context.Background(), "missing")

		assert.Nil(t, p)
		assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	})
}

func TestStorage_UpdateProperty(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s, mock := newMockStorage(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE properties SET")).
			WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

		p := &model.Property{ID: "p-1", Title: "Renamed"}
		err := s.UpdateProperty(context.Background(), p)

		require.NoError(t, err)
		assert.Equal(t, now, p.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Deleted meanwhile", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(regexp.QuoteMeta("UPDATE properties SET")).
			WillReturnError(sql.ErrNoRows)

		err := s.UpdateProperty(context.Background(), &model.Property{ID: "p-1"})

		assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
	})
}

func TestStorage_DeleteProperty(t *testing.T) {
	tests := []struct {
		name        string
		affected    int64
		expectedErr error
	}{
		{name: "Soft deletes live row", affected: 1, expectedErr: nil},
		{name: "Already deleted", affected: 0, expectedErr: domain.ErrPropertyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			mock.ExpectExec(regexp.QuoteMeta("UPDATE properties SET deleted_at = NOW()")).
				WithArgs("p-1").
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := s.DeleteProperty(context.Background(), "p-1")

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ListProperties(t *testing.T) {
	t.Run("Keyset page", func(t *testing.T) {
		s, mock := newMockStorage(t)
		cursorTime := time.Now()

		rows := sqlmock.NewRows(propertyRowColumns)
		propertyRow(rows, "p-2", "agent-1", cursorTime.Add(-time.Minute))

		mock.ExpectQuery(regexp.QuoteMeta("AND agent_id = $1 AND (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT $4")).
			WithArgs("agent-1", cursorTime, "p-3", 11).
			WillReturnRows(rows)

		properties, err := s.ListProperties(context.Background(), PropertyFilter{
			AgentID:  "agent-1",
			PageSize: 10,
			Cursor:   &PropertyCursor{CreatedAt: cursorTime, ID: "p-3"},
		})

		require.NoError(t, err)
		require.Len(t, properties, 1)
		assert.Equal(t, "p-2", properties[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unbounded without page size", func(t *testing.T) {
		s, mock := newMockStorage(t)

		mock.ExpectQuery(`ORDER BY created_at DESC, id DESC$`).
			WithArgs("agent-1").
			WillReturnRows(sqlmock.NewRows(propertyRowColumns))

		properties, err := s.ListProperties(context.Background(), PropertyFilter{AgentID: "agent-1"})

		require.NoError(t, err)
		assert.Empty(t, properties)
		assert.NotNil(t, properties)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_FirstPropertyForAgent(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at ASC, id ASC")).
		WithArgs("agent-1").
		WillReturnError(sql.ErrNoRows)

	p, err := s.FirstPropertyForAgent(context.Background(), "agent-1")

	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrPropertyNotFound)
}
