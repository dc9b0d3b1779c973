package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mindwell/internal/flagx"
	"github.com/dmitrijs2005/mindwell/internal/timex"
)

// JsonConfig is the on-disk representation of Config. Durations accept
// either strings such as "5m" or integer nanoseconds. Pointer fields let
// an omitted key keep the value already present in Config.
type JsonConfig struct {
	EndpointAddrHTTP            string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string          `json:"database_dsn"`
	SecretKey                   string          `json:"secret_key"`
	AuthRequired                *bool           `json:"auth_required"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	StorageBackend              string          `json:"storage_backend"`
	LocalStorageDir             string          `json:"local_storage_dir"`
	S3RootUser                  string          `json:"s3_root_user"`
	S3RootPassword              string          `json:"s3_root_password"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	PresignTTL                  *timex.Duration `json:"presign_ttl"`
	OpenAIAPIKey                string          `json:"openai_api_key"`
	OpenAIBaseURL               string          `json:"openai_base_url"`
	TranscriptionModel          string          `json:"transcription_model"`
	AnalysisModel               string          `json:"analysis_model"`
	RedisAddr                   string          `json:"redis_addr"`
	Dispatcher                  string          `json:"dispatcher"`
	WorkerConcurrency           int             `json:"worker_concurrency"`
	JobTimeout                  *timex.Duration `json:"job_timeout"`
	JobRetention                *timex.Duration `json:"job_retention"`
	JanitorInterval             *timex.Duration `json:"janitor_interval"`
	MaxUploadBytes              int64           `json:"max_upload_bytes"`
	CORSOrigins                 []string        `json:"cors_origins"`
	LogFormat                   string          `json:"log_format"`
	LogLevel                    string          `json:"log_level"`
	LogFile                     string          `json:"log_file"`
}

// parseJson overlays values from the JSON file named by -c/-config.
// Nothing happens when the flag is absent; unreadable or malformed files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AuthRequired != nil {
		config.AuthRequired = *c.AuthRequired
	}
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.LocalStorageDir, c.LocalStorageDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.PresignTTL != nil {
		config.PresignTTL = c.PresignTTL.Duration
	}
	setString(&config.OpenAIAPIKey, c.OpenAIAPIKey)
	setString(&config.OpenAIBaseURL, c.OpenAIBaseURL)
	setString(&config.TranscriptionModel, c.TranscriptionModel)
	setString(&config.AnalysisModel, c.AnalysisModel)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.Dispatcher, c.Dispatcher)
	if c.WorkerConcurrency > 0 {
		config.WorkerConcurrency = c.WorkerConcurrency
	}
	if c.JobTimeout != nil {
		config.JobTimeout = c.JobTimeout.Duration
	}
	if c.JobRetention != nil {
		config.JobRetention = c.JobRetention.Duration
	}
	if c.JanitorInterval != nil {
		config.JanitorInterval = c.JanitorInterval.Duration
	}
	if c.MaxUploadBytes > 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = c.CORSOrigins
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
