package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the API answered 404 for a novel, chapter or history.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means a history call was made without a usable token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidID is returned before any request when an id is not a UUID.
	ErrInvalidID = errors.New("invalid id")
)

// StatusError is a non-2xx answer other than 404.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api error: HTTP %d: %s", e.Status, e.Detail)
}

// parseDetail extracts the "detail" member of an error body. Validation
// errors carry a list of objects with a "msg" each.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(payload.Detail)
}
