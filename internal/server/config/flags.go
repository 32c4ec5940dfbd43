package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/serialgate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   PostgreSQL DSN
//	-l string   audit log file path
//	-v string   log level (debug, info, warn, error)
//	-i int      checkpoint interval, seconds
//	-k string   encrypted links bundle path
//	-t string   encrypted token bundle path
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name (empty disables the archive)
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-r string   Redis URL (empty disables the handle cache)
//	-m string   metrics HTTP address
//	-a string   gRPC health address
//	-G          gate serial lookups behind an active subscription (use -G=false to turn off)
//
// Only these flags are extracted from os.Args via flagx.FilterArgs so the
// JSON config flag and foreign flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-d", "-l", "-v", "-i", "-k", "-t", "-u", "-p", "-b", "-g", "-e", "-r", "-m", "-a", "-G",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogFile, "l", config.LogFile, "audit log file")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	checkpointInterval := fs.Int("i", int(config.CheckpointInterval.Seconds()), "checkpoint interval (in seconds)")

	fs.StringVar(&config.LinksBundlePath, "k", config.LinksBundlePath, "encrypted links bundle")
	fs.StringVar(&config.TokenBundlePath, "t", config.TokenBundlePath, "encrypted token bundle")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "Redis URL")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC health address")
	fs.BoolVar(&config.GateLookups, "G", config.GateLookups, "require an active subscription for serial lookups")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.CheckpointInterval = time.Duration(*checkpointInterval) * time.Second
}
