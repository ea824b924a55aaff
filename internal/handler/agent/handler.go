// Package agent exposes the HTTP proxy surface of the gateway: session
// creation and the streaming turn relay the console talks to.
package agent

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driveai/console/backend/internal/config"
	agentModel "github.com/driveai/console/backend/internal/model/agent"
	agentService "github.com/driveai/console/backend/internal/service/agent"
	"github.com/driveai/console/backend/pkg/utils"
)

// Handler proxies console requests to the upstream agent API.
type Handler struct {
	client *agentService.Client
}

// New creates the agent proxy handler.
func New(client *agentService.Client) *Handler {
	return &Handler{client: client}
}

// RegisterRoutes mounts the agent proxy endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/agent/start", h.handleStart)
	r.Post("/agent/{sessionID}/stream", h.handleStream)
}

type startRequest struct {
	AgentID            string `json:"agentId"`
	InstanceEndpoint   string `json:"instanceEndpoint"`
	ExternalSessionKey string `json:"externalSessionKey"`
	Streaming          bool   `json:"streaming"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	// An absent or malformed body just means configured defaults.
	_ = json.NewDecoder(r.Body).Decode(&req)

	session, err := h.client.StartSession(r.Context(), agentService.StartSessionOptions{
		AgentID:          req.AgentID,
		InstanceEndpoint: req.InstanceEndpoint,
		ExternalKey:      req.ExternalSessionKey,
		Streaming:        req.Streaming,
	})
	if err != nil {
		writeClientError(w, err)
		return
	}

	// Relay the upstream creation response untouched; it can carry
	// greeting messages beyond the session id.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(session.Raw)
}

type streamTurnRequest struct {
	Text               string                `json:"text"`
	SequenceID         json.Number           `json:"sequenceId"`
	InReplyToMessageID string                `json:"inReplyToMessageId"`
	Variables          []agentModel.Variable `json:"variables"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		utils.RespondError(w, http.StatusBadRequest, "missing sessionId in path")
		return
	}

	var req streamTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "text and sequenceId are required")
		return
	}
	seq, seqErr := req.SequenceID.Int64()
	if req.Text == "" || seqErr != nil {
		log.Printf("[relay] validation failed hasText=%t sequenceId=%q", req.Text != "", req.SequenceID.String())
		utils.RespondError(w, http.StatusBadRequest, "text and sequenceId are required")
		return
	}

	turn := agentModel.Turn{
		SequenceID: int(seq),
		Text:       req.Text,
		InReplyTo:  req.InReplyToMessageID,
		Variables:  req.Variables,
	}

	// The upstream request rides the client's request context, so a
	// dropped console connection cancels the upstream read and frees
	// the connection.
	body, err := h.client.OpenStream(r.Context(), sessionID, turn)
	if err != nil {
		writeClientError(w, err)
		return
	}
	defer body.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Verbatim byte relay; the console parses frames itself.
	if _, err := io.Copy(utils.FlushWriter{W: w, F: flusher}, body); err != nil {
		log.Printf("[relay] stream interrupted session=%s: %v", sessionID, err)
		return
	}
	log.Printf("[relay] stream completed session=%s", sessionID)
}

func writeClientError(w http.ResponseWriter, err error) {
	var upstreamErr *agentService.UpstreamError
	var missing *config.Error

	switch {
	case errors.As(err, &upstreamErr):
		relayUpstream(w, upstreamErr)
	case errors.As(err, &missing):
		utils.RespondError(w, http.StatusBadRequest, missing.Error())
	case errors.Is(err, agentService.ErrSessionRequired),
		errors.Is(err, agentService.ErrTextRequired),
		errors.Is(err, agentService.ErrInvalidSequence):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}

// relayUpstream surfaces a rejected upstream response verbatim so the
// console sees the original status and diagnostics.
func relayUpstream(w http.ResponseWriter, upstreamErr *agentService.UpstreamError) {
	contentType := upstreamErr.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(upstreamErr.Status)
	_, _ = io.WriteString(w, upstreamErr.Body)
}
