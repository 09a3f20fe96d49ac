package protocol

import (
	"homehub/internal/domain/model"
	"strings"
)

// ActuatorCodec is the dialect of the relay firmware: "<action>:<deviceId>".
// Actuators report their own status ("status:connected"), never commands.
type ActuatorCodec struct{}

func (ActuatorCodec) Name() string { return FormatActuator }

func (ActuatorCodec) Encode(ev model.Event) ([][]byte, error) {
	switch ev.Type {
	case model.EventInitialState:
		frames := make([][]byte, 0, len(ev.Devices))
		for _, d := range ev.Devices {
			frames = append(frames, actuatorLine(d))
		}
		return frames, nil
	case model.EventDeviceUpdate:
		return [][]byte{actuatorLine(ev.Device)}, nil
	case model.EventError:
		return nil, nil
	}
	return nil, malformed("unknown event type %q", ev.Type)
}

func (ActuatorCodec) Decode(frame []byte) (Request, error) {
	return Request{}, malformed("actuator message %q is not a command", strings.TrimSpace(string(frame)))
}

// ParseStatus splits an actuator report such as "status:connected".
func ParseStatus(frame []byte) (string, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(string(frame)), ":")
	if !ok || key != "status" {
		return "", false
	}
	return value, true
}

func actuatorLine(d model.Device) []byte {
	return []byte(string(model.ActionFor(d.IsOn)) + ":" + d.ID)
}
