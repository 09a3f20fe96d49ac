package protocol

import (
	"homehub/internal/domain/model"
	"strings"
)

const (
	linePrefixAction = "ACTION"
	linePrefixError  = "ERROR"
	linePrefixToggle = "toggle"
)

// LineCodec speaks the compact text protocol:
//
//	ACTION:<turn_on|turn_off>:<deviceId|all>
//	toggle:<deviceId>     (inbound only)
//	ERROR:<message>       (outbound only)
type LineCodec struct{}

func (LineCodec) Name() string { return FormatLine }

func (LineCodec) Encode(ev model.Event) ([][]byte, error) {
	switch ev.Type {
	case model.EventInitialState:
		frames := make([][]byte, 0, len(ev.Devices))
		for _, d := range ev.Devices {
			frames = append(frames, actionLine(d))
		}
		return frames, nil
	case model.EventDeviceUpdate:
		return [][]byte{actionLine(ev.Device)}, nil
	case model.EventError:
		return [][]byte{[]byte(linePrefixError + ":" + ev.Error)}, nil
	}
	return nil, malformed("unknown event type %q", ev.Type)
}

func (LineCodec) Decode(frame []byte) (Request, error) {
	text := strings.TrimSpace(string(frame))
	parts := strings.Split(text, ":")
	switch {
	case len(parts) == 3 && strings.EqualFold(parts[0], linePrefixAction):
		action, err := model.ParseAction(parts[1])
		if err != nil {
			return Request{}, malformed("%v", err)
		}
		target := model.NormalizeName(parts[2])
		if target == "" {
			return Request{}, malformed("missing device in %q", text)
		}
		return Request{Kind: KindSet, Target: target, Action: action}, nil
	case len(parts) == 2 && strings.EqualFold(parts[0], linePrefixToggle):
		target := model.NormalizeName(parts[1])
		if target == "" {
			return Request{}, malformed("missing device in %q", text)
		}
		return Request{Kind: KindToggle, Target: target}, nil
	}
	return Request{}, malformed("unrecognized line %q", text)
}

func actionLine(d model.Device) []byte {
	return []byte(linePrefixAction + ":" + string(model.ActionFor(d.IsOn)) + ":" + d.ID)
}
