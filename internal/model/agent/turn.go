package agent

// Variable is one ordered key/value passed to the agent as turn context.
type Variable struct {
	Name  string      `json:"name"`
	Type  string      `json:"type,omitempty"`
	Value interface{} `json:"value"`
}

// Turn is a single user message within a session. SequenceID must
// strictly increase within the session; the upstream relies on it for
// ordering and the gateway does not renumber.
type Turn struct {
	SequenceID int        `json:"sequenceId"`
	Text       string     `json:"text"`
	InReplyTo  string     `json:"inReplyToMessageId,omitempty"`
	Variables  []Variable `json:"variables,omitempty"`
}
