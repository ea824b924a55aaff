// Package sse reassembles server-sent-event records from a byte stream
// delivered in arbitrary chunks.
package sse

import "strings"

// Frame is one fully delimited SSE record: an optional event name and
// the joined data payload.
type Frame struct {
	Event string
	Data  string
}

// Parser carries unconsumed bytes between Feed calls so that chunk
// boundaries may fall anywhere: inside a field name, inside a payload,
// or across record delimiters. The zero value is ready to use.
type Parser struct {
	buf string
}

// Feed appends a chunk and returns every complete record it closes off.
// Records without a data line (comments, keep-alives) yield no frame.
// Anything after the last delimiter stays buffered for the next call; a
// trailing partial record at end of stream is simply never emitted.
func (p *Parser) Feed(chunk []byte) []Frame {
	p.buf += string(chunk)

	var frames []Frame
	for {
		record, rest, ok := nextRecord(p.buf)
		if !ok {
			break
		}
		p.buf = rest
		if frame, ok := parseRecord(record); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Buffered reports how many bytes are held back awaiting a delimiter.
func (p *Parser) Buffered() int {
	return len(p.buf)
}

// nextRecord splits buf at the first blank line, accepting both LF and
// CRLF line endings.
func nextRecord(buf string) (record, rest string, ok bool) {
	lf := strings.Index(buf, "\n\n")
	crlf := strings.Index(buf, "\n\r\n")

	switch {
	case lf < 0 && crlf < 0:
		return "", "", false
	case crlf < 0 || (lf >= 0 && lf < crlf):
		return buf[:lf], buf[lf+2:], true
	default:
		return buf[:crlf], buf[crlf+3:], true
	}
}

func parseRecord(record string) (Frame, bool) {
	var frame Frame
	var data []string

	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			frame.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if len(data) == 0 {
		return Frame{}, false
	}
	frame.Data = strings.Join(data, "\n")
	return frame, true
}
