package config

import (
	"flag"
	"os"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-r string   postgres DSN of the remote document store
//	-d string   sqlite DSN of the local store
//	-i int      online check interval in seconds
//	-s int      periodic sync interval in seconds
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-r", "-d", "-i", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteDBDSN, "r", cfg.RemoteDBDSN, "postgres DSN of the remote document store")
	fs.StringVar(&cfg.LocalDBDSN, "d", cfg.LocalDBDSN, "sqlite DSN of the local store")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "periodic sync interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
}
