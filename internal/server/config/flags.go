package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/mindwell/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-g string     gRPC bind address (e.g. ":50051")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-auth         require bearer tokens on the API
//	-storage      storage backend: local or s3
//	-dir string   local storage directory
//	-b string     S3 bucket name
//	-e string     S3 base endpoint
//	-redis        Redis address; enables cache, pub/sub and asynq
//	-dispatcher   inline or asynq
//	-timeout      per-job timeout (e.g. "5m")
//	-log-level    debug, info, warn or error
//
// os.Args is filtered through flagx.FilterArgs first, so flags handled by
// other loaders (-c, -env) do not break parsing.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-s", "-auth", "-storage", "-dir", "-b", "-e",
		"-redis", "-dispatcher", "-timeout", "-log-level",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP on")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC on")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.BoolVar(&config.AuthRequired, "auth", config.AuthRequired, "require bearer tokens")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "audio storage backend (local|s3)")
	fs.StringVar(&config.LocalStorageDir, "dir", config.LocalStorageDir, "local audio storage directory")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.Dispatcher, "dispatcher", config.Dispatcher, "job dispatcher (inline|asynq)")
	fs.DurationVar(&config.JobTimeout, "timeout", config.JobTimeout, "per-job processing timeout")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
