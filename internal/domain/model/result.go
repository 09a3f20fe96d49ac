package model

// Update is the outcome of applying a state to one device.
type Update struct {
	Device  Device `json:"device"`
	Changed bool   `json:"changed"`
}

// MutationResult describes a hub mutation, bulk or single.
type MutationResult struct {
	Action  Action   `json:"action"`
	Target  string   `json:"target"`
	Updates []Update `json:"updates"`
	Skipped []string `json:"skipped,omitempty"`
}

// ChangedCount is the number of real transitions.
func (r *MutationResult) ChangedCount() int {
	n := 0
	for _, u := range r.Updates {
		if u.Changed {
			n++
		}
	}
	return n
}

// Outcome reports what a command utterance led to.
type Outcome struct {
	Matched      bool            `json:"matched"`
	Debounced    bool            `json:"debounced,omitempty"`
	Action       Action          `json:"action,omitempty"`
	DeviceID     string          `json:"deviceId,omitempty"`
	ResponseText string          `json:"response_text,omitempty"`
	Result       *MutationResult `json:"result,omitempty"`
	Err          error           `json:"-"`
}
