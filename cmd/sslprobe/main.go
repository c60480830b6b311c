// Command sslprobe connects to a TLS server, completes the handshake
// and prints the negotiated session parameters.
package main

//
// Main
//

import (
	"os"

	"github.com/apex/log"
	"github.com/ooni/sslclient/internal/log/handlers/cli"
	"github.com/spf13/cobra"
)

// Options contains the global options.
type Options struct {
	ConfigPath string
	Verbose    bool
}

func main() {
	var globalOptions Options
	root := &cobra.Command{
		Use:   "sslprobe",
		Short: "sslprobe inspects the TLS session negotiated with a server",
		Args:  cobra.NoArgs,
		PersistentPreRun: func(*cobra.Command, []string) {
			log.Log = newLogger(&globalOptions)
		},
	}
	flags := root.PersistentFlags()

	flags.StringVarP(
		&globalOptions.ConfigPath,
		"config",
		"c",
		"",
		"read the profile from the given JSON or TOML file",
	)

	flags.BoolVarP(
		&globalOptions.Verbose,
		"verbose",
		"v",
		false,
		"increase verbosity level",
	)

	root.AddCommand(connectSubcommand(&globalOptions))
	root.AddCommand(profileSubcommand(&globalOptions))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger returns the logger configured according to the options.
func newLogger(options *Options) *log.Logger {
	level := log.InfoLevel
	if options.Verbose {
		level = log.DebugLevel
	}
	return &log.Logger{Level: level, Handler: cli.Default}
}
