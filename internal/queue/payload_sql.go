package queue

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Value stores the payload as JSONB.
func (p Payload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan reads a JSONB payload column.
func (p *Payload) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case nil:
		*p = Payload{}
		return nil
	default:
		return fmt.Errorf("unsupported payload column type %T", src)
	}
	return json.Unmarshal(raw, p)
}
