package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mindwell/internal/flagx"
	"github.com/dmitrijs2005/mindwell/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Empty fields
// leave the current value alone.
type JsonConfig struct {
	ServerURL        string          `json:"server_url"`
	AccessToken      string          `json:"access_token"`
	UserID           int64           `json:"user_id"`
	PollInterval     *timex.Duration `json:"poll_interval"`
	RequestTimeout   *timex.Duration `json:"request_timeout"`
	HistoryDB        string          `json:"history_db"`
	RecordCommand    string          `json:"record_command"`
	PlayCommand      string          `json:"play_command"`
	AudioContentType string          `json:"audio_content_type"`
	LogLevel         string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.ServerURL, jc.ServerURL)
	set(&cfg.AccessToken, jc.AccessToken)
	set(&cfg.HistoryDB, jc.HistoryDB)
	set(&cfg.RecordCommand, jc.RecordCommand)
	set(&cfg.PlayCommand, jc.PlayCommand)
	set(&cfg.AudioContentType, jc.AudioContentType)
	set(&cfg.LogLevel, jc.LogLevel)

	if jc.UserID != 0 {
		cfg.UserID = jc.UserID
	}
	if jc.PollInterval != nil {
		cfg.PollInterval = jc.PollInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
