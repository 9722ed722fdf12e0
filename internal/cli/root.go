// Package cli implements e2ectl, the device-side tool for customers and the
// operator: it holds private keys locally and talks to storefrontd.
package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type app struct {
	profilePath string
	server      string
	verbose     bool
	debug       bool
	log         Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "e2ectl",
		Short:         "End-to-end encrypted storefront messaging from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.log = Logger{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Verbose: a.verbose, Debug: a.debug}
			a.log.Debugf("profile=%s server=%s", a.profilePath, a.server)
		},
	}
	root.PersistentFlags().StringVar(&a.profilePath, "profile", filepath.Join(DefaultHome(), "profile.toml"), "profile file")
	root.PersistentFlags().StringVar(&a.server, "server", os.Getenv("E2ECTL_SERVER"), "storefrontd base URL (overrides the profile)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug output")

	root.AddCommand(
		a.initCmd(),
		a.keyCmd(),
		a.conversationCmd(),
		a.sendCmd(),
		a.orderCmd(),
		a.readCmd(),
		a.watchCmd(),
		a.tokenCmd(),
	)
	return root
}

func (a *app) loadProfile() (Profile, bool, error) {
	p, found, err := LoadProfile(a.profilePath)
	if err != nil {
		return Profile{}, false, err
	}
	if a.server != "" {
		p.Server = a.server
	}
	return p, found, nil
}

// withSession opens the keyring and client described by the profile for the
// duration of fn.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	p, _, err := a.loadProfile()
	if err != nil {
		return err
	}
	s, err := openSession(p)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			a.log.Warnf("close keyring: %v", cerr)
		}
	}()
	return fn(cmd.Context(), s)
}
