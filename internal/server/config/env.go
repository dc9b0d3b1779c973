package config

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/flagx"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment key, e.g. MINDWELL_DATABASE_DSN.
const EnvPrefix = "MINDWELL"

// parseEnv overlays values from the process environment. A dotenv file named
// by -env (or ./.env when present) is loaded first; variables that are
// already set win over the file.
func parseEnv(config *Config) {
	if f := flagx.EnvFileFlag(); f != "" {
		if err := godotenv.Load(f); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	str := func(key string, dst *string) {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("endpoint_addr_http", &config.EndpointAddrHTTP)
	str("endpoint_addr_grpc", &config.EndpointAddrGRPC)
	str("database_dsn", &config.DatabaseDSN)
	str("secret_key", &config.SecretKey)
	str("storage_backend", &config.StorageBackend)
	str("local_storage_dir", &config.LocalStorageDir)
	str("s3_root_user", &config.S3RootUser)
	str("s3_root_password", &config.S3RootPassword)
	str("s3_bucket", &config.S3Bucket)
	str("s3_region", &config.S3Region)
	str("s3_base_endpoint", &config.S3BaseEndpoint)
	str("openai_api_key", &config.OpenAIAPIKey)
	str("openai_base_url", &config.OpenAIBaseURL)
	str("transcription_model", &config.TranscriptionModel)
	str("analysis_model", &config.AnalysisModel)
	str("redis_addr", &config.RedisAddr)
	str("dispatcher", &config.Dispatcher)
	str("log_format", &config.LogFormat)
	str("log_level", &config.LogLevel)
	str("log_file", &config.LogFile)

	_ = v.BindEnv("auth_required")
	if v.IsSet("auth_required") {
		config.AuthRequired = v.GetBool("auth_required")
	}

	_ = v.BindEnv("worker_concurrency")
	if v.IsSet("worker_concurrency") {
		config.WorkerConcurrency = v.GetInt("worker_concurrency")
	}

	_ = v.BindEnv("max_upload_bytes")
	if v.IsSet("max_upload_bytes") {
		config.MaxUploadBytes = v.GetInt64("max_upload_bytes")
	}

	// comma separated
	_ = v.BindEnv("cors_origins")
	if v.IsSet("cors_origins") {
		config.CORSOrigins = splitList(v.GetString("cors_origins"))
	}

	durations := map[string]*time.Duration{
		"access_token_validity_duration": &config.AccessTokenValidityDuration,
		"presign_ttl":                    &config.PresignTTL,
		"job_timeout":                    &config.JobTimeout,
		"job_retention":                  &config.JobRetention,
		"janitor_interval":               &config.JanitorInterval,
	}
	for key, dst := range durations {
		_ = v.BindEnv(key)
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
