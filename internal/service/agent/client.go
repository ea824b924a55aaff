// Package agent speaks the upstream conversational-agent API: session
// creation, the streaming turn endpoint, and the reduction of its SSE
// stream into chat deltas.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/driveai/console/backend/internal/config"
	agentModel "github.com/driveai/console/backend/internal/model/agent"
	"github.com/driveai/console/backend/internal/service/auth"
)

// Client calls the upstream agent API with bearer tokens drawn from the
// shared cache.
type Client struct {
	cfg    config.AgentConfig
	tokens *auth.TokenCache
	client *http.Client
}

// NewClient builds an upstream client. A nil http.Client falls back to
// http.DefaultClient.
func NewClient(cfg config.AgentConfig, tokens *auth.TokenCache, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{cfg: cfg, tokens: tokens, client: client}
}

// StartSessionOptions override the configured defaults for one session.
type StartSessionOptions struct {
	AgentID          string
	InstanceEndpoint string
	ExternalKey      string
	Streaming        bool
}

type startSessionRequest struct {
	ExternalSessionKey    string                 `json:"externalSessionKey"`
	InstanceConfig        instanceConfig         `json:"instanceConfig"`
	StreamingCapabilities *streamingCapabilities `json:"streamingCapabilities,omitempty"`
	BypassUser            bool                   `json:"bypassUser,omitempty"`
}

type instanceConfig struct {
	Endpoint string `json:"endpoint"`
}

type streamingCapabilities struct {
	ChunkTypes []string `json:"chunkTypes"`
}

// StartSession provisions an upstream session. A missing external key
// is replaced with a random one; when streaming is requested the
// session advertises text-chunk capability.
func (c *Client) StartSession(ctx context.Context, opts StartSessionOptions) (agentModel.Session, error) {
	agentID := opts.AgentID
	if agentID == "" {
		agentID = c.cfg.AgentID
	}
	if _, err := config.Require("SF_AGENT_ID", agentID); err != nil {
		return agentModel.Session{}, err
	}

	endpoint := opts.InstanceEndpoint
	if endpoint == "" {
		endpoint = c.cfg.InstanceURL
	}
	if _, err := config.Require("SF_INSTANCE_URL", endpoint); err != nil {
		return agentModel.Session{}, err
	}

	key := opts.ExternalKey
	if key == "" {
		key = uuid.NewString()
	}

	body := startSessionRequest{
		ExternalSessionKey: key,
		InstanceConfig:     instanceConfig{Endpoint: endpoint},
	}
	if opts.Streaming {
		body.StreamingCapabilities = &streamingCapabilities{ChunkTypes: []string{"Text"}}
	}
	if c.cfg.ClientCredentialsConfigured() {
		// Client-credentials flows carry no end user; the upstream
		// substitutes the agent-assigned one.
		body.BypassUser = true
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return agentModel.Session{}, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return agentModel.Session{}, fmt.Errorf("start session: %w", err)
	}

	reqURL := c.cfg.APIBase + "/agents/" + url.PathEscape(agentID) + "/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return agentModel.Session{}, fmt.Errorf("start session: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return agentModel.Session{}, fmt.Errorf("start session: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return agentModel.Session{}, fmt.Errorf("start session: read response: %w", err)
	}

	log.Printf("[agent] start session status=%d streaming=%t", resp.StatusCode, opts.Streaming)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return agentModel.Session{}, &UpstreamError{
			Status:      resp.StatusCode,
			Body:        string(raw),
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return agentModel.Session{}, fmt.Errorf("start session: decode response: %w", err)
	}
	if created.SessionID == "" {
		return agentModel.Session{}, &UpstreamError{
			Status:      resp.StatusCode,
			Body:        string(raw),
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	return agentModel.Session{
		ID:          created.SessionID,
		ExternalKey: key,
		Streaming:   opts.Streaming,
		CreatedAt:   time.Now().UTC(),
		Raw:         raw,
	}, nil
}

type streamMessage struct {
	Type               string `json:"type"`
	SequenceID         int    `json:"sequenceId"`
	InReplyToMessageID string `json:"inReplyToMessageId,omitempty"`
	Text               string `json:"text"`
}

type streamRequest struct {
	Message   streamMessage         `json:"message"`
	Variables []agentModel.Variable `json:"variables,omitempty"`
}

// OpenStream sends one turn and returns the upstream SSE body as-is:
// bytes are pulled lazily by the caller, nothing is reframed. Closing
// the reader (or cancelling ctx) releases the upstream connection; that
// cleanup is part of the contract, not an optimization. On rejection no
// bytes are yielded and the status and body come back verbatim.
func (c *Client) OpenStream(ctx context.Context, sessionID string, turn agentModel.Turn) (io.ReadCloser, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if turn.Text == "" {
		return nil, ErrTextRequired
	}
	if turn.SequenceID < 1 {
		return nil, ErrInvalidSequence
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(streamRequest{
		Message: streamMessage{
			Type:               "Text",
			SequenceID:         turn.SequenceID,
			InReplyToMessageID: turn.InReplyTo,
			Text:               turn.Text,
		},
		Variables: turn.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	reqURL := c.cfg.APIBase + "/sessions/" + url.PathEscape(sessionID) + "/messages/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Printf("[agent] open stream rejected status=%d", resp.StatusCode)
		return nil, &UpstreamError{
			Status:      resp.StatusCode,
			Body:        string(raw),
			ContentType: resp.Header.Get("Content-Type"),
		}
	}

	return resp.Body, nil
}

// Streaming reports whether sessions default to streamed responses.
func (c *Client) Streaming() bool {
	return c.cfg.Streaming
}
