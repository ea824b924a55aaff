package auth

import "fmt"

// Error reports a failed client-credentials exchange. Status is zero
// when the failure happened before or after the HTTP round trip.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Status < 200 || e.Status >= 300 {
		return fmt.Sprintf("oauth token request failed: status %d", e.Status)
	}
	return "oauth token request failed: " + e.Body
}
