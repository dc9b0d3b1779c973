package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/mindwell/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the MindWell server
//	-u int      user id the check-ins belong to
//	-t string   bearer access token
//	-i int      status poll interval (in seconds)
//	-db string  path of the local history database
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-t", "-i", "-db"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.Int64Var(&cfg.UserID, "u", cfg.UserID, "user id")
	fs.StringVar(&cfg.AccessToken, "t", cfg.AccessToken, "access token")
	pollInterval := fs.Int("i", int(cfg.PollInterval.Seconds()), "status poll interval (in seconds)")
	fs.StringVar(&cfg.HistoryDB, "db", cfg.HistoryDB, "history database path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.PollInterval = time.Duration(*pollInterval) * time.Second
}
