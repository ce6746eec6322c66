package core

import (
	"encoding/json"
	"strings"
)

// fallbackID fills id from an "id" key when the API did not send "_id".
// Numeric ids are kept as their decimal text.
func fallbackID(data []byte, id *string) error {
	if *id != "" {
		return nil
	}
	var aux struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(aux.ID))
	if raw == "" || raw == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ID, &s); err == nil {
		*id = s
		return nil
	}
	*id = raw
	return nil
}
