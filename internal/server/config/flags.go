package config

import (
	"flag"
	"os"
	"time"

	"github.com/akarpov87/storysync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-l string   SQLite DSN for the local draft store
//	-t int      settings cache TTL, minutes
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LocalDSN, "l", config.LocalDSN, "local draft store DSN")

	settingsTTL := fs.Int("t", int(config.SettingsTTL.Minutes()), "settings cache TTL (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SettingsTTL = time.Duration(*settingsTTL) * time.Minute
}
