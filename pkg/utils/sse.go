package utils

import "net/http"

// SetupSSEHeaders prepares a response for a server-sent-event body.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-transform")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// FlushWriter flushes after every write so relayed stream chunks reach
// the client as they arrive instead of sitting in the response buffer.
type FlushWriter struct {
	W http.ResponseWriter
	F http.Flusher
}

func (fw FlushWriter) Write(p []byte) (int, error) {
	n, err := fw.W.Write(p)
	if fw.F != nil {
		fw.F.Flush()
	}
	return n, err
}
