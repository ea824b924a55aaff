package agent

import (
	"encoding/json"
	"time"
)

// Session identifies one upstream conversation. Created once per
// conversation and never mutated; its lifetime is owned upstream.
type Session struct {
	ID          string    `json:"sessionId"`
	ExternalKey string    `json:"externalSessionKey"`
	Streaming   bool      `json:"streaming"`
	CreatedAt   time.Time `json:"createdAt"`

	// Raw is the verbatim upstream creation response, kept so the HTTP
	// proxy can relay it untouched (it may carry greeting messages and
	// other fields beyond the session id).
	Raw json.RawMessage `json:"-"`
}
