package model

type EventType string

const (
	EventInitialState EventType = "initial_state"
	EventDeviceUpdate EventType = "device_update"
	EventError        EventType = "error"
)

// Event is what the hub delivers to observers. Exactly one of Devices,
// Device or Error is meaningful depending on Type.
type Event struct {
	Type    EventType
	Devices []Device
	Device  Device
	Error   string
}

func SnapshotEvent(devices []Device) Event {
	return Event{Type: EventInitialState, Devices: devices}
}

func UpdateEvent(d Device) Event {
	return Event{Type: EventDeviceUpdate, Device: d}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}
