// Package config loads runtime settings from defaults, an optional YAML
// file, HOMEHUB_* environment variables and command-line flags.
package config

import (
	"fmt"
	"homehub/internal/domain/voice"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "HOMEHUB"

// Config holds the complete application configuration
type Config struct {
	HTTP        HTTPConfig        `mapstructure:"http"`
	SSDP        SSDPConfig        `mapstructure:"ssdp"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Log         LogConfig         `mapstructure:"log"`
	Hub         HubConfig         `mapstructure:"hub"`
	Voice       VoiceConfig       `mapstructure:"voice"`
	Interpreter InterpreterConfig `mapstructure:"interpreter"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicHost is advertised to Hue remotes; detected when empty.
	PublicHost string `mapstructure:"public_host"`
}

type SSDPConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console, json
}

type HubConfig struct {
	MaxPending   int           `mapstructure:"max_pending"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type VoiceConfig struct {
	WakeWords        []string      `mapstructure:"wake_words"`
	MinCommandLength int           `mapstructure:"min_command_length"`
	ArmTimeout       time.Duration `mapstructure:"arm_timeout"`
	LockHold         time.Duration `mapstructure:"lock_hold"`
	RestartDelay     time.Duration `mapstructure:"restart_delay"`
	CollisionBackoff time.Duration `mapstructure:"collision_backoff"`
	EchoSettle       time.Duration `mapstructure:"echo_settle"`
	MaxSpeaking      time.Duration `mapstructure:"max_speaking"`
	Debounce         time.Duration `mapstructure:"debounce"`
}

type InterpreterConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns a new configuration with default values
func DefaultConfig() *Config {
	v := voice.DefaultConfig()
	return &Config{
		HTTP:    HTTPConfig{Addr: ":8000"},
		SSDP:    SSDPConfig{Enabled: true},
		Catalog: CatalogConfig{Path: "devices.json"},
		Log:     LogConfig{Level: "info", Format: "console"},
		Hub:     HubConfig{MaxPending: 256, WriteTimeout: 10 * time.Second},
		Voice: VoiceConfig{
			WakeWords:        v.WakeWords,
			MinCommandLength: v.MinCommandLength,
			ArmTimeout:       v.ArmTimeout,
			LockHold:         v.LockHold,
			RestartDelay:     v.RestartDelay,
			CollisionBackoff: v.CollisionBackoff,
			EchoSettle:       v.EchoSettle,
			MaxSpeaking:      v.MaxSpeaking,
			Debounce:         2 * time.Second,
		},
		Interpreter: InterpreterConfig{Timeout: 30 * time.Second},
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"addr":        "http.addr",
	"public-host": "http.public_host",
	"ssdp":        "ssdp.enabled",
	"catalog":     "catalog.path",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"interpreter": "interpreter.url",
}

// RegisterFlags adds the overridable settings to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("addr", d.HTTP.Addr, "HTTP listen address")
	fs.String("public-host", d.HTTP.PublicHost, "address advertised to LAN clients (detected when empty)")
	fs.Bool("ssdp", d.SSDP.Enabled, "answer Hue discovery searches")
	fs.String("catalog", d.Catalog.Path, "device catalog file")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	fs.String("log-format", d.Log.Format, "log format (console, json)")
	fs.String("interpreter", d.Interpreter.URL, "free-text interpreter URL")
}

// Load reads configPath (optional) and overlays environment and flags.
// fs may be nil.
func Load(configPath string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("homehub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/homehub")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := c.Port(); err != nil {
		return fmt.Errorf("invalid http.addr %q: %w", c.HTTP.Addr, err)
	}
	if len(c.Voice.WakeWords) == 0 {
		return fmt.Errorf("voice.wake_words must not be empty")
	}
	if c.Voice.MinCommandLength < 0 {
		return fmt.Errorf("voice.min_command_length must not be negative")
	}
	return nil
}

// Port is the TCP port of http.addr.
func (c *Config) Port() (int, error) {
	_, port, err := net.SplitHostPort(c.HTTP.Addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(port)
}

// VoiceSettings converts to the listening loop configuration.
func (c *Config) VoiceSettings() voice.Config {
	words := make([]string, 0, len(c.Voice.WakeWords))
	for _, w := range c.Voice.WakeWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			words = append(words, w)
		}
	}
	return voice.Config{
		WakeWords:        words,
		MinCommandLength: c.Voice.MinCommandLength,
		ArmTimeout:       c.Voice.ArmTimeout,
		LockHold:         c.Voice.LockHold,
		RestartDelay:     c.Voice.RestartDelay,
		CollisionBackoff: c.Voice.CollisionBackoff,
		EchoSettle:       c.Voice.EchoSettle,
		MaxSpeaking:      c.Voice.MaxSpeaking,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("http.addr", d.HTTP.Addr)
	v.SetDefault("http.public_host", d.HTTP.PublicHost)
	v.SetDefault("ssdp.enabled", d.SSDP.Enabled)
	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("hub.max_pending", d.Hub.MaxPending)
	v.SetDefault("hub.write_timeout", d.Hub.WriteTimeout)
	v.SetDefault("voice.wake_words", d.Voice.WakeWords)
	v.SetDefault("voice.min_command_length", d.Voice.MinCommandLength)
	v.SetDefault("voice.arm_timeout", d.Voice.ArmTimeout)
	v.SetDefault("voice.lock_hold", d.Voice.LockHold)
	v.SetDefault("voice.restart_delay", d.Voice.RestartDelay)
	v.SetDefault("voice.collision_backoff", d.Voice.CollisionBackoff)
	v.SetDefault("voice.echo_settle", d.Voice.EchoSettle)
	v.SetDefault("voice.max_speaking", d.Voice.MaxSpeaking)
	v.SetDefault("voice.debounce", d.Voice.Debounce)
	v.SetDefault("interpreter.url", d.Interpreter.URL)
	v.SetDefault("interpreter.token", d.Interpreter.Token)
	v.SetDefault("interpreter.timeout", d.Interpreter.Timeout)
}
