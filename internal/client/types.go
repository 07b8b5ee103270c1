// ABOUTME: Request and response types for the authentication and API-key endpoints
// ABOUTME: Includes a timestamp type tolerant of naive ISO-8601 values

package client

import (
	"encoding/json"
	"fmt"
	"time"
)

// Credentials is the login and register request body. Fields are sent as-is.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is the reply to login and register
type AuthResponse struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// APIKey is one key owned by the logged-in user. Key strings are unique per backend.
type APIKey struct {
	Key       string    `json:"key"`
	CreatedAt Timestamp `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// KeyList is the GET /api/keys reply
type KeyList struct {
	APIKeys []APIKey `json:"api_keys"`
}

// GeneratedKey is the POST /api/generate-key reply
type GeneratedKey struct {
	APIKey string `json:"api_key"`
}

// MessageResponse is a reply carrying only a message
type MessageResponse struct {
	Message string `json:"message"`
}

// Timestamp accepts RFC 3339 values and zone-less ISO-8601 values, which are read as UTC
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

// MarshalJSON implements json.Marshaler
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}
