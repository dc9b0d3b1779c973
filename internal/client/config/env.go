package config

import (
	"github.com/dmitrijs2005/mindwell/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is shared with the server, e.g. MINDWELL_SERVER_URL.
const EnvPrefix = "MINDWELL"

func parseEnv(cfg *Config) {
	if f := flagx.EnvFileFlag(); f != "" {
		if err := godotenv.Load(f); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	for key, dst := range map[string]*string{
		"server_url":         &cfg.ServerURL,
		"access_token":       &cfg.AccessToken,
		"history_db":         &cfg.HistoryDB,
		"record_command":     &cfg.RecordCommand,
		"play_command":       &cfg.PlayCommand,
		"audio_content_type": &cfg.AudioContentType,
		"log_level":          &cfg.LogLevel,
	} {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	_ = v.BindEnv("user_id")
	if v.IsSet("user_id") {
		cfg.UserID = v.GetInt64("user_id")
	}
	_ = v.BindEnv("poll_interval")
	if v.IsSet("poll_interval") {
		cfg.PollInterval = v.GetDuration("poll_interval")
	}
	_ = v.BindEnv("request_timeout")
	if v.IsSet("request_timeout") {
		cfg.RequestTimeout = v.GetDuration("request_timeout")
	}
}
