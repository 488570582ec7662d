package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:           "webcheck",
	Short:         "Passive website security scanner with a web dashboard",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadCommandConfig(cmd); err != nil {
			return err
		}

		l, err := newLogger(cliConfig.LogDevelopment)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.webcheck.yaml)")
	flags.DurationVar(&cliConfig.Lookup.Timeout, "timeout", cliConfig.Lookup.Timeout, "Timeout for each lookup of a scan")
	flags.StringSliceVar(&cliConfig.Lookup.Nameservers, "nameservers", cliConfig.Lookup.Nameservers, "DNS servers to query (default: system resolvers)")
	flags.StringVar(&cliConfig.Lookup.CrtshBaseURL, "crtsh-url", cliConfig.Lookup.CrtshBaseURL, "Base URL of the certificate transparency search")
	flags.StringVar(&cliConfig.Lookup.WhoisServer, "whois-server", cliConfig.Lookup.WhoisServer, "First WHOIS server to query")
	flags.StringVar(&cliConfig.Lookup.FirewallURL, "firewall-url", "", "Optional web-check instance answering firewall scans")
	flags.BoolVar(&cliConfig.LogDevelopment, "log-development", false, "Human-readable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}
