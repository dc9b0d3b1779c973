package config

import "time"

// Config holds runtime settings for the MindWell CLI.
type Config struct {
	ServerURL      string
	AccessToken    string
	UserID         int64
	PollInterval   time.Duration
	RequestTimeout time.Duration
	HistoryDB      string

	// RecordCommand captures microphone audio and writes it to stdout.
	RecordCommand    string
	PlayCommand      string
	AudioContentType string

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.AccessToken = ""
	c.UserID = 0
	c.PollInterval = 2 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.HistoryDB = "mindwell.db"
	c.RecordCommand = "ffmpeg -hide_banner -loglevel error -f pulse -i default -c:a libopus -f webm -"
	c.PlayCommand = "ffplay -autoexit -nodisp -loglevel error"
	c.AudioContentType = "audio/webm"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON, the environment and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
