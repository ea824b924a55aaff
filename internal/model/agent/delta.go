package agent

// DeltaKind enumerates the reducer's output alphabet.
type DeltaKind int

const (
	DeltaTextChunk DeltaKind = iota + 1
	DeltaFinalMessage
	DeltaEndOfTurn
	DeltaError
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaTextChunk:
		return "text_chunk"
	case DeltaFinalMessage:
		return "final_message"
	case DeltaEndOfTurn:
		return "end_of_turn"
	case DeltaError:
		return "error"
	default:
		return "unknown"
	}
}

// ChatDelta is one incremental update to the assistant message being
// rendered. For DeltaTextChunk, Text carries the accumulated message so
// far; for DeltaFinalMessage the complete answer; for DeltaError the
// error message. DeltaEndOfTurn carries no text.
type ChatDelta struct {
	Kind DeltaKind `json:"kind"`
	Text string    `json:"text,omitempty"`
}
