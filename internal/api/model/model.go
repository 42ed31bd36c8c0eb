package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type Property struct {
	ID           string     `db:"id"`
	AgentID      string     `db:"agent_id"`
	Title        string     `db:"title"`
	Description  string     `db:"description"`
	Address      string     `db:"address"`
	City         string     `db:"city"`
	State        string     `db:"state"`
	ZipCode      string     `db:"zip_code"`
	Country      string     `db:"country"`
	Price        float64    `db:"price"`
	Bedrooms     *int       `db:"bedrooms"`
	Bathrooms    *int       `db:"bathrooms"`
	SquareFeet   *float64   `db:"square_feet"`
	PropertyType string     `db:"property_type"`
	Status       string     `db:"status"`
	Features     StringList `db:"features"`
	Images       StringList `db:"images"`
	IsFeatured   bool       `db:"is_featured"`
	SoldAt       *time.Time `db:"sold_at"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// StringList is a []string stored as a JSONB array
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	return json.Unmarshal(raw, (*[]string)(l))
}
