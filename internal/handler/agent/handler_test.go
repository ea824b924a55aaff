package agent

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/driveai/console/backend/internal/config"
	agentService "github.com/driveai/console/backend/internal/service/agent"
	"github.com/driveai/console/backend/internal/service/auth"
)

type upstreamState struct {
	sessionStatus int
	sessionBody   string
	streamStatus  int
	streamBody    string
	streamSSE     string

	calls atomic.Int32
}

func setupRouter(t *testing.T, state *upstreamState) *chi.Mux {
	t.Helper()

	if state.sessionStatus == 0 {
		state.sessionStatus = http.StatusOK
	}
	if state.sessionBody == "" {
		state.sessionBody = `{"sessionId":"s-1","messages":[{"type":"Inform","message":"Hello!"}]}`
	}
	if state.streamSSE == "" {
		state.streamSSE = "event: TEXT_CHUNK\ndata: {\"data\":{\"message\":{\"message\":\"Hi\"}}}\n\nevent: END_OF_TURN\ndata: {}\n\n"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"tok-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("POST /agents/{agentID}/sessions", func(w http.ResponseWriter, r *http.Request) {
		state.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(state.sessionStatus)
		io.WriteString(w, state.sessionBody)
	})
	mux.HandleFunc("POST /sessions/{sessionID}/messages/stream", func(w http.ResponseWriter, r *http.Request) {
		state.calls.Add(1)
		if state.streamStatus != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(state.streamStatus)
			io.WriteString(w, state.streamBody)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, state.streamSSE)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.AgentConfig{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     srv.URL + "/token",
		InstanceURL:  srv.URL,
		AgentID:      "a-1",
		APIBase:      srv.URL,
		Streaming:    true,
	}
	tokens := auth.NewTokenCache(cfg, srv.Client())
	client := agentService.NewClient(cfg, tokens, srv.Client())

	r := chi.NewRouter()
	New(client).RegisterRoutes(r)
	return r
}

func TestStartRelaysUpstreamBody(t *testing.T) {
	state := &upstreamState{}
	r := setupRouter(t, state)

	req := httptest.NewRequest(http.MethodPost, "/agent/start", strings.NewReader(`{"streaming":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != state.sessionBody {
		t.Fatalf("upstream body not relayed verbatim: %q", resp.Body.String())
	}
}

func TestStartRelaysUpstreamRejection(t *testing.T) {
	state := &upstreamState{
		sessionStatus: http.StatusForbidden,
		sessionBody:   `{"error":"denied"}`,
	}
	r := setupRouter(t, state)

	req := httptest.NewRequest(http.MethodPost, "/agent/start", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	if resp.Body.String() != `{"error":"denied"}` {
		t.Fatalf("rejection body modified: %q", resp.Body.String())
	}
}

func TestStreamRelaysSSEVerbatim(t *testing.T) {
	state := &upstreamState{}
	r := setupRouter(t, state)

	body := `{"text":"how is the engine?","sequenceId":1}`
	req := httptest.NewRequest(http.MethodPost, "/agent/s-1/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("unexpected content type %q", got)
	}
	if resp.Body.String() != state.streamSSE {
		t.Fatalf("stream altered in transit:\n got %q\nwant %q", resp.Body.String(), state.streamSSE)
	}
}

func TestStreamRejectsNonNumericSequenceID(t *testing.T) {
	state := &upstreamState{}
	r := setupRouter(t, state)

	body := `{"text":"hi","sequenceId":"abc"}`
	req := httptest.NewRequest(http.MethodPost, "/agent/s-1/stream", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if state.calls.Load() != 0 {
		t.Fatal("upstream called despite invalid sequenceId")
	}
}

func TestStreamRejectsMissingText(t *testing.T) {
	state := &upstreamState{}
	r := setupRouter(t, state)

	req := httptest.NewRequest(http.MethodPost, "/agent/s-1/stream", strings.NewReader(`{"sequenceId":1}`))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if state.calls.Load() != 0 {
		t.Fatal("upstream called despite missing text")
	}
}

func TestStreamRelaysUpstreamRejection(t *testing.T) {
	state := &upstreamState{
		streamStatus: http.StatusNotFound,
		streamBody:   `{"error":"session expired"}`,
	}
	r := setupRouter(t, state)

	body := `{"text":"hi","sequenceId":2}`
	req := httptest.NewRequest(http.MethodPost, "/agent/s-gone/stream", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if resp.Body.String() != `{"error":"session expired"}` {
		t.Fatalf("rejection body modified: %q", resp.Body.String())
	}
}
