package agent

import (
	"errors"
	"io"

	agentModel "github.com/driveai/console/backend/internal/model/agent"
	"github.com/driveai/console/backend/internal/sse"
)

const readChunkSize = 4096

// DeltaStream parses the raw SSE body of one turn into chat deltas.
// Recv returns io.EOF once the upstream closes cleanly and *StreamError
// on a mid-stream transport failure; deltas parsed before the failure
// are still delivered first. Close releases the upstream connection and
// may be called at any point.
type DeltaStream struct {
	body    io.ReadCloser
	parser  sse.Parser
	reducer *Reducer
	pending []agentModel.ChatDelta
	buf     []byte
	err     error
}

// NewDeltaStream wraps a raw SSE byte stream such as the one returned
// by Client.OpenStream.
func NewDeltaStream(body io.ReadCloser) *DeltaStream {
	return &DeltaStream{
		body:    body,
		reducer: NewReducer(),
		buf:     make([]byte, readChunkSize),
	}
}

// Recv returns the next delta, pulling upstream bytes as needed.
func (s *DeltaStream) Recv() (agentModel.ChatDelta, error) {
	for {
		if len(s.pending) > 0 {
			delta := s.pending[0]
			s.pending = s.pending[1:]
			return delta, nil
		}
		if s.err != nil {
			return agentModel.ChatDelta{}, s.err
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			for _, frame := range s.parser.Feed(s.buf[:n]) {
				if delta, ok := s.reducer.Apply(frame); ok {
					s.pending = append(s.pending, delta)
				}
			}
		}
		if err != nil {
			// A partial record left in the parser is incomplete input
			// and stays unparsed.
			if errors.Is(err, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = &StreamError{Err: err}
			}
		}
	}
}

// Close cancels the upstream read and releases its connection.
func (s *DeltaStream) Close() error {
	return s.body.Close()
}
