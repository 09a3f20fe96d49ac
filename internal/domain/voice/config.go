package voice

import "time"

type Config struct {
	WakeWords        []string
	MinCommandLength int
	ArmTimeout       time.Duration
	LockHold         time.Duration
	RestartDelay     time.Duration
	CollisionBackoff time.Duration
	EchoSettle       time.Duration
	MaxSpeaking      time.Duration
}

func DefaultConfig() Config {
	return Config{
		WakeWords:        []string{"jerry", "gerry", "cherry", "jury", "sherry", "gary", "terry"},
		MinCommandLength: 2,
		ArmTimeout:       5 * time.Second,
		LockHold:         2 * time.Second,
		RestartDelay:     300 * time.Millisecond,
		CollisionBackoff: 2 * time.Second,
		EchoSettle:       100 * time.Millisecond,
		MaxSpeaking:      30 * time.Second,
	}
}
