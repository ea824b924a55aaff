package agent

import (
	"encoding/json"
	"log"
	"strings"

	agentModel "github.com/driveai/console/backend/internal/model/agent"
	"github.com/driveai/console/backend/internal/sse"
)

// Upstream event vocabulary. Unknown kinds are dropped, not fatal.
const (
	eventTextChunk = "TEXT_CHUNK"
	eventInform    = "INFORM"
	eventEndOfTurn = "END_OF_TURN"
	eventError     = "ERROR"
)

// framePayload mirrors the upstream envelope
// {event, data:{message:{type, message}}}; older responses nest the
// message one level less, and ERROR events carry a bare string.
type framePayload struct {
	Event   string          `json:"event"`
	Message json.RawMessage `json:"message"`
	Data    struct {
		Message json.RawMessage `json:"message"`
	} `json:"data"`
}

type innerMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Reducer folds parsed SSE frames into the assistant message currently
// being streamed. It is scoped to one turn at a time: EndOfTurn resets
// the accumulator, errors leave it alone.
type Reducer struct {
	acc     strings.Builder
	ignored map[string]bool
}

func NewReducer() *Reducer {
	return &Reducer{}
}

// Apply interprets one frame. The bool reports whether a delta was
// produced; unknown event kinds and chunks without message text yield
// none. A payload that fails to decode produces an Error delta rather
// than aborting the stream.
func (r *Reducer) Apply(frame sse.Frame) (agentModel.ChatDelta, bool) {
	var payload framePayload
	if err := json.Unmarshal([]byte(frame.Data), &payload); err != nil {
		return agentModel.ChatDelta{Kind: agentModel.DeltaError, Text: "malformed event payload"}, true
	}

	kind := frame.Event
	if kind == "" {
		kind = payload.Event
	}

	switch kind {
	case eventTextChunk:
		if text, ok := messageText(payload); ok {
			r.acc.WriteString(text)
			return agentModel.ChatDelta{Kind: agentModel.DeltaTextChunk, Text: r.acc.String()}, true
		}
	case eventInform:
		if text, ok := messageText(payload); ok {
			// Non-chunked final answer replaces whatever was streamed.
			r.acc.Reset()
			r.acc.WriteString(text)
			return agentModel.ChatDelta{Kind: agentModel.DeltaFinalMessage, Text: text}, true
		}
	case eventEndOfTurn:
		r.acc.Reset()
		return agentModel.ChatDelta{Kind: agentModel.DeltaEndOfTurn}, true
	case eventError:
		return agentModel.ChatDelta{Kind: agentModel.DeltaError, Text: errorText(payload)}, true
	default:
		if kind != "" && !r.ignored[kind] {
			if r.ignored == nil {
				r.ignored = make(map[string]bool)
			}
			r.ignored[kind] = true
			log.Printf("[agent] ignoring unrecognized event kind %q", kind)
		}
	}

	return agentModel.ChatDelta{}, false
}

// Reset clears the accumulator ahead of a new turn.
func (r *Reducer) Reset() {
	r.acc.Reset()
}

// Text returns the assistant message accumulated so far.
func (r *Reducer) Text() string {
	return r.acc.String()
}

func messageText(payload framePayload) (string, bool) {
	raw := payload.Data.Message
	if len(raw) == 0 {
		raw = payload.Message
	}
	if len(raw) == 0 {
		return "", false
	}

	var inner innerMessage
	if err := json.Unmarshal(raw, &inner); err != nil || inner.Message == "" {
		return "", false
	}
	return inner.Message, true
}

func errorText(payload framePayload) string {
	raw := payload.Data.Message
	if len(raw) == 0 {
		raw = payload.Message
	}
	if len(raw) > 0 {
		var plain string
		if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
			return plain
		}
		var inner innerMessage
		if err := json.Unmarshal(raw, &inner); err == nil && inner.Message != "" {
			return inner.Message
		}
	}
	return "upstream error"
}
