package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap stores an open-ended JSON object in a text column. It works across
// PostgreSQL, MySQL and SQLite the same way StringArray does.
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("JSONMap: unsupported scan type")
	}
}

// Value implements the driver.Valuer interface.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (JSONMap) GormDataType() string {
	return "text"
}
