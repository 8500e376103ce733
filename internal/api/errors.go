package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Error is a non-successful backend response.
type Error struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s failed with status %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: %s failed with status %d", e.Op, e.StatusCode)
}

// detailFromBody extracts a FastAPI-style {"detail": ...} message, falling
// back to the raw body text.
func detailFromBody(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if err := json.Unmarshal(payload.Detail, &s); err == nil {
				return s
			}
			return string(payload.Detail)
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
