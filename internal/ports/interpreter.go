package ports

import "context"

// Interpretation is the reply of the free-text command interpreter. Action
// and DeviceType are optional; when both are set the hub executes them.
type Interpretation struct {
	ResponseText string `json:"response_text,omitempty"`
	Action       string `json:"action,omitempty"`
	DeviceType   string `json:"device_type,omitempty"`
}

// Interpreter handles utterances the local parser does not match.
type Interpreter interface {
	Interpret(ctx context.Context, text string) (*Interpretation, error)
}
