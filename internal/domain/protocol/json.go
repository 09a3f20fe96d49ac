package protocol

import (
	"bytes"
	"encoding/json"
	"homehub/internal/domain/model"
	"time"
)

// JSONCodec speaks the envelope protocol used by browser clients. Inbound
// frames that are not JSON objects are read as line commands.
type JSONCodec struct{}

type updateEnvelope struct {
	Type      model.EventType `json:"type"`
	DeviceID  string          `json:"deviceId"`
	State     bool            `json:"state"`
	Timestamp time.Time       `json:"timestamp"`
	Source    model.Source    `json:"source"`
}

type snapshotEnvelope struct {
	Type    model.EventType         `json:"type"`
	Devices map[string]model.Device `json:"devices"`
}

type errorEnvelope struct {
	Type  model.EventType `json:"type"`
	Error string          `json:"error"`
}

type inboundEnvelope struct {
	DeviceID string `json:"deviceId"`
	State    *bool  `json:"state"`
	Action   string `json:"action"`
}

func (JSONCodec) Name() string { return FormatJSON }

func (JSONCodec) Encode(ev model.Event) ([][]byte, error) {
	var v any
	switch ev.Type {
	case model.EventInitialState:
		devices := make(map[string]model.Device, len(ev.Devices))
		for _, d := range ev.Devices {
			devices[d.ID] = d
		}
		v = snapshotEnvelope{Type: ev.Type, Devices: devices}
	case model.EventDeviceUpdate:
		v = updateEnvelope{
			Type:      ev.Type,
			DeviceID:  ev.Device.ID,
			State:     ev.Device.IsOn,
			Timestamp: ev.Device.LastUpdated,
			Source:    ev.Device.LastControlledBy,
		}
	case model.EventError:
		v = errorEnvelope{Type: ev.Type, Error: ev.Error}
	default:
		return nil, malformed("unknown event type %q", ev.Type)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return [][]byte{b}, nil
}

func (JSONCodec) Decode(frame []byte) (Request, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return LineCodec{}.Decode(trimmed)
	}

	var in inboundEnvelope
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return Request{}, malformed("invalid JSON")
	}
	target := model.NormalizeName(in.DeviceID)
	if target == "" {
		return Request{}, malformed("missing deviceId")
	}
	switch {
	case in.State != nil:
		return Request{Kind: KindSet, Target: target, Action: model.ActionFor(*in.State)}, nil
	case in.Action == "toggle":
		return Request{Kind: KindToggle, Target: target}, nil
	case in.Action != "":
		action, err := model.ParseAction(in.Action)
		if err != nil {
			return Request{}, malformed("%v", err)
		}
		return Request{Kind: KindSet, Target: target, Action: action}, nil
	}
	return Request{}, malformed("missing state")
}
