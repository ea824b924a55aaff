package agent

import (
	"context"
	"strings"
	"sync"

	agentModel "github.com/driveai/console/backend/internal/model/agent"
)

// Conversation is the caller-facing surface for one dialogue: it owns
// the upstream session id and the monotonically increasing sequence id
// the protocol requires per turn.
type Conversation struct {
	client *Client

	mu        sync.Mutex
	sessionID string
	seq       int
}

func NewConversation(client *Client) *Conversation {
	return &Conversation{client: client}
}

// EnsureSession creates the upstream session on first use and afterwards
// returns the same id without a network call.
func (c *Conversation) EnsureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID != "" {
		return c.sessionID, nil
	}

	session, err := c.client.StartSession(ctx, StartSessionOptions{Streaming: c.client.Streaming()})
	if err != nil {
		return "", err
	}
	c.sessionID = session.ID
	return c.sessionID, nil
}

// SendTurn sends one user message and returns the delta stream of the
// response. The caller must drain the stream or Close it; an abandoned
// stream would otherwise pin the upstream connection.
func (c *Conversation) SendTurn(ctx context.Context, text string) (*DeltaStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}

	sessionID, err := c.EnsureSession(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.seq++
	turn := agentModel.Turn{SequenceID: c.seq, Text: text}
	c.mu.Unlock()

	body, err := c.client.OpenStream(ctx, sessionID, turn)
	if err != nil {
		return nil, err
	}
	return NewDeltaStream(body), nil
}
