package schema

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB is a jsonb column holding a JSON object.
//
//	type UserProfile struct {
//	    Preferences schema.JSONB `db:"preferences,jsonb"`
//	}
//
// A nil map round-trips as NULL.
type JSONB map[string]any

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(map[string]any(j))
}

// Scan implements sql.Scanner. pgx may hand over the decoded object directly.
func (j *JSONB) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case map[string]any:
		*j = v
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", src)
	}

	obj := JSONB{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("invalid jsonb object: %w", err)
	}
	*j = obj
	return nil
}

// String returns the value of key when it holds a string.
func (j JSONB) String(key string) (string, bool) {
	s, ok := j[key].(string)
	return s, ok
}
