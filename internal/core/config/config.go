package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/cbroglie/mustache"
)

const AppName = "TeamMediChat"

const DefaultWelcomeTemplate = `Hello! This is {{app_name}}.
Ask anything you are curious about regarding medicines.
To find a nearby pharmacy, set your location with /address <query>.

{{app_name}} does not provide professional medical advice. If you need a prescription or an accurate diagnosis, please consult a medical professional.`

// Defaults mirror the web client's behaviour
const (
	DefaultServerURL      = "http://localhost:8000"
	DefaultReconnectDelay = 3 * time.Second
	DefaultTypingIdle     = time.Second
	DefaultMaxImageBytes  = 5 * 1024 * 1024
	DefaultMaxInputChars  = 2000
)

type Config struct {
	ServerURL      string
	ReconnectDelay time.Duration
	TypingIdle     time.Duration
	MaxImageBytes  int64
	MaxInputChars  int
	WelcomeMessage string // Rendered from the welcome template
	KakaoRESTKey   string
	StateDBPath    string
	LogFile        string
	Debug          bool
}

type tomlConfig struct {
	ServerURL       string        `toml:"server_url"`
	ReconnectDelay  time.Duration `toml:"reconnect_delay"`
	TypingIdle      time.Duration `toml:"typing_idle"`
	MaxImageBytes   int64         `toml:"max_image_bytes"`
	WelcomeTemplate string        `toml:"welcome_template"`
	KakaoRESTKey    string        `toml:"kakao_rest_key"`
	StateDB         string        `toml:"state_db"`
	LogFile         string        `toml:"log_file"`
}

// Dir returns ~/.config/medichat, or "" if the home directory is unknown
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "medichat")
}

// Load reads config from ~/.config/medichat/config.toml
func Load() (*Config, error) {
	dir := Dir()
	if dir == "" {
		return LoadFile("") // Use defaults
	}
	return LoadFile(filepath.Join(dir, "config.toml"))
}

// LoadFile reads config from path. A missing file yields defaults; a malformed
// one is an error. Environment variables override both.
func LoadFile(path string) (*Config, error) {
	tc := tomlConfig{
		ServerURL:       DefaultServerURL,
		ReconnectDelay:  DefaultReconnectDelay,
		TypingIdle:      DefaultTypingIdle,
		MaxImageBytes:   DefaultMaxImageBytes,
		WelcomeTemplate: DefaultWelcomeTemplate,
	}

	if dir := Dir(); dir != "" {
		tc.StateDB = filepath.Join(dir, "state.db")
		tc.LogFile = filepath.Join(dir, "medichat.log")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &tc); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&tc)

	if tc.ReconnectDelay <= 0 {
		tc.ReconnectDelay = DefaultReconnectDelay
	}
	if tc.TypingIdle <= 0 {
		tc.TypingIdle = DefaultTypingIdle
	}
	if tc.MaxImageBytes <= 0 {
		tc.MaxImageBytes = DefaultMaxImageBytes
	}

	welcome, err := mustache.Render(tc.WelcomeTemplate, map[string]string{
		"app_name": AppName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render welcome template: %w", err)
	}

	return &Config{
		ServerURL:      tc.ServerURL,
		ReconnectDelay: tc.ReconnectDelay,
		TypingIdle:     tc.TypingIdle,
		MaxImageBytes:  tc.MaxImageBytes,
		MaxInputChars:  DefaultMaxInputChars,
		WelcomeMessage: welcome,
		KakaoRESTKey:   tc.KakaoRESTKey,
		StateDBPath:    tc.StateDB,
		LogFile:        tc.LogFile,
		Debug:          os.Getenv("MEDICHAT_DEBUG") == "true",
	}, nil
}

func applyEnv(tc *tomlConfig) {
	if v := os.Getenv("MEDICHAT_SERVER_URL"); v != "" {
		tc.ServerURL = v
	}
	if v := os.Getenv("KAKAO_REST_API_KEY"); v != "" {
		tc.KakaoRESTKey = v
	}
}
