package main

//
// The profile subcommand
//

import (
	"github.com/apex/log"
	"github.com/spf13/cobra"
)

// profileSubcommand returns the profile subcommand.
func profileSubcommand(globalOptions *Options) *cobra.Command {
	config := &profileCommand{globalOptions: globalOptions}
	cmd := &cobra.Command{
		Use:   "profile PATH ADDRESS",
		Short: "Writes a JSON or TOML profile for ADDRESS reflecting the given flags",
		Run:   config.main,
		Args:  cobra.ExactArgs(2),
	}
	config.profileFlags.register(cmd.Flags())
	return cmd
}

// profileCommand is the profile subcommand configuration.
type profileCommand struct {
	globalOptions *Options
	profileFlags  profileFlags
}

// main is the main function of the profile subcommand.
func (pc *profileCommand) main(_ *cobra.Command, args []string) {
	if err := pc.run(args[0], args[1]); err != nil {
		log.WithError(err).Fatal("sslprobe profile failed")
	}
	log.Infof("written %s", args[0])
}

// run writes the profile at path.
func (pc *profileCommand) run(path, address string) error {
	profile, err := loadProfile(pc.globalOptions, address, &pc.profileFlags)
	if err != nil {
		return err
	}
	return profile.WriteTo(path)
}
