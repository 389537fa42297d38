package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
)

// parseFlags populates Config fields from command-line flags. Only the flags
// handled here are passed to the flag set (see flagx.Select).
func parseFlags(cfg *Config) {
	args := flagx.Select(os.Args[1:], "a", "i", "f", "l", "w")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "f", cfg.DatabasePath, "local database file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "log file")
	fs.StringVar(&cfg.NotifyAddr, "w", cfg.NotifyAddr, "change feed listen address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
