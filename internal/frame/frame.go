// Package frame implements the text wire codec for protocol frames.
//
// A data frame is encoded as ~m~<length>~m~<payload>, a heartbeat frame
// as ~h~<counter>. A batch is the plain concatenation of encoded frames;
// DecodeAll splits a batch back into its frames.
package frame

import (
	"errors"
	"strconv"
	"strings"
)

// Type tags a decoded frame.
type Type int

const (
	// TypeData is an application message frame.
	TypeData Type = iota
	// TypeHeartbeat is a liveness frame carrying the heartbeat counter.
	TypeHeartbeat
)

const (
	dataMarker      = "~m~"
	heartbeatMarker = "~h~"
)

// ErrMalformed is returned when wire text cannot be decoded as a frame.
var ErrMalformed = errors.New("malformed frame")

// Frame is one decoded protocol unit.
type Frame struct {
	Type Type
	// Data holds the message payload for TypeData frames.
	Data string
	// Counter holds the heartbeat counter for TypeHeartbeat frames.
	Counter int
}

// Encode renders a message as a data frame.
func Encode(msg string) string {
	var b strings.Builder
	b.Grow(len(dataMarker)*2 + len(msg) + 4)
	b.WriteString(dataMarker)
	b.WriteString(strconv.Itoa(len(msg)))
	b.WriteString(dataMarker)
	b.WriteString(msg)
	return b.String()
}

// EncodeHeartbeat renders a heartbeat frame carrying the given counter.
func EncodeHeartbeat(counter int) string {
	return heartbeatMarker + strconv.Itoa(counter)
}

// EncodeBatch renders messages as a concatenation of data frames.
func EncodeBatch(msgs []string) string {
	var b strings.Builder
	for _, msg := range msgs {
		b.WriteString(Encode(msg))
	}
	return b.String()
}

// Handshake renders the frame sent on session creation, carrying the
// session id as its payload.
func Handshake(sessionID string) string {
	return Encode(sessionID)
}

// Decode parses the first frame from raw wire text and returns it along
// with any remaining text (the rest of a batch).
func Decode(raw string) (Frame, string, error) {
	switch {
	case strings.HasPrefix(raw, heartbeatMarker):
		digits := raw[len(heartbeatMarker):]
		end := digitSpan(digits)
		if end == 0 {
			return Frame{}, "", ErrMalformed
		}
		counter, err := strconv.Atoi(digits[:end])
		if err != nil {
			return Frame{}, "", ErrMalformed
		}
		return Frame{Type: TypeHeartbeat, Counter: counter}, digits[end:], nil

	case strings.HasPrefix(raw, dataMarker):
		rest := raw[len(dataMarker):]
		end := digitSpan(rest)
		if end == 0 {
			return Frame{}, "", ErrMalformed
		}
		length, err := strconv.Atoi(rest[:end])
		if err != nil {
			return Frame{}, "", ErrMalformed
		}
		rest = rest[end:]
		if !strings.HasPrefix(rest, dataMarker) {
			return Frame{}, "", ErrMalformed
		}
		rest = rest[len(dataMarker):]
		if len(rest) < length {
			return Frame{}, "", ErrMalformed
		}
		return Frame{Type: TypeData, Data: rest[:length]}, rest[length:], nil

	default:
		return Frame{}, "", ErrMalformed
	}
}

// DecodeAll parses a batch of concatenated frames. It fails if any part
// of the input is not a well-formed frame.
func DecodeAll(raw string) ([]Frame, error) {
	var frames []Frame
	for raw != "" {
		f, rest, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		frames = append(frames, f)
		raw = rest
	}
	return frames, nil
}

// digitSpan returns the length of the leading run of ASCII digits in s.
func digitSpan(s string) int {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
