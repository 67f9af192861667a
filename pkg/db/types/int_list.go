package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IntList stores an ordered list of integers as a JSON array. Used for the
// per-offset renewal counts of a retention row so the whole curve lives in one
// column and is replaced atomically with its row.
type IntList []int

func (l *IntList) Scan(src any) error {
	if src == nil {
		*l = IntList{}
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("IntList: unsupported Scan type %T", src)
	}

	if len(data) == 0 {
		*l = IntList{}
		return nil
	}

	var out []int
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("IntList: decode %q: %w", string(data), err)
	}
	*l = IntList(out)
	return nil
}

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int(l))
	if err != nil {
		return nil, fmt.Errorf("IntList: encode: %w", err)
	}
	return string(data), nil
}
