package mytypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is stored as jsonb array.
// we need this extra type to be usable with bob/scan
type StringList []string

func (h *StringList) Scan(value any) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		*h = StringList{}
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("value is neither []byte nor string: %T", value)
	}
	var work []string
	if err := json.Unmarshal(bytes, &work); err != nil {
		return err
	}
	if work == nil {
		work = []string{}
	}
	*h = work
	return nil
}

func (h StringList) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(h))
}
