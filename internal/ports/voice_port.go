package ports

import "context"

// VoiceEvents receives session status changes, e.g. to mirror them to a UI.
type VoiceEvents interface {
	SessionChanged(mode string)
	ListeningChanged(active bool)
}

// VoiceChannel is one running listening loop with its own echo gate.
type VoiceChannel interface {
	Run(ctx context.Context) error
	Enable()
	Disable()
	OnSynthesisStart()
	OnSynthesisEnd()
}

// VoicePort builds listening loops for recognition sources.
type VoicePort interface {
	NewChannel(source RecognitionSource, synth Synthesizer, events VoiceEvents) VoiceChannel
}
