package site

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// payload is the union of the JSON bodies the site answers AJAX calls with.
type payload struct {
	Message   string `json:"message"`
	NewAlerts *int   `json:"new_alerts"`
	Result    *bool  `json:"result"`
}

// decodePayload decodes body, repairing slightly malformed JSON (trailing
// commas, single quotes, truncation) before giving up.
func decodePayload(body []byte) (payload, error) {
	var p payload

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return p, nil
	}

	if err := json.Unmarshal(trimmed, &p); err == nil {
		return p, nil
	}

	repaired, err := jsonrepair.JSONRepair(string(trimmed))
	if err != nil {
		return payload{}, fmt.Errorf("failed to repair payload: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &p); err != nil {
		return payload{}, fmt.Errorf("failed to decode payload: %w", err)
	}
	return p, nil
}
