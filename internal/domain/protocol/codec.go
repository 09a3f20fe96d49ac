package protocol

import (
	"fmt"
	"homehub/internal/domain/model"
	"homehub/internal/ports"
	"strings"
)

type RequestKind int

const (
	KindSet RequestKind = iota
	KindToggle
)

// Request is a mutation asked for by an observer.
type Request struct {
	Kind   RequestKind
	Target string
	Action model.Action
}

// Codec converts hub events into websocket frames and inbound frames into
// requests. An event may take several frames in line-oriented formats.
type Codec interface {
	Name() string
	Encode(ev model.Event) ([][]byte, error)
	Decode(frame []byte) (Request, error)
}

const (
	FormatJSON     = "json"
	FormatLine     = "line"
	FormatActuator = "actuator"
)

// ForFormat picks a codec by name; the empty name means JSON.
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", FormatJSON:
		return JSONCodec{}, nil
	case FormatLine:
		return LineCodec{}, nil
	case FormatActuator:
		return ActuatorCodec{}, nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ports.ErrMalformedMessage, fmt.Sprintf(format, args...))
}
