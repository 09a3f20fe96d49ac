package protocol

// Voice websocket message types. The browser runs recognition and speech
// synthesis and relays results; the hub answers with control messages.
const (
	VoiceListen           = "listen"
	VoiceMute             = "mute"
	VoiceTranscript       = "transcript"
	VoiceStreamEnd        = "stream_end"
	VoiceRecognitionError = "recognition_error"
	VoiceSynthesisStart   = "synthesis_start"
	VoiceSynthesisEnd     = "synthesis_end"

	VoiceStartRecognition = "start_recognition"
	VoiceStopRecognition  = "stop_recognition"
	VoiceSpeak            = "speak"
	VoiceSession          = "session"
	VoiceListening        = "listening"
	VoiceError            = "error"
)

// VoiceMessage is every voice message, in either direction.
type VoiceMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	IsFinal bool   `json:"isFinal,omitempty"`
	Error   string `json:"error,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Active  *bool  `json:"active,omitempty"`
}

// PermissionError reports whether a browser recognition error code means
// the user refused microphone access.
func PermissionError(code string) bool {
	return code == "not-allowed" || code == "service-not-allowed"
}
