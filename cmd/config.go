package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/khanhnv2901/webcheck/internal/api"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
)

const (
	defaultServerAddr      = "127.0.0.1:8080"
	defaultRateLimit       = 10
	defaultRateBurst       = 20
	defaultShutdownTimeout = 30 * time.Second
	envPrefix              = "WEBCHECK"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Server         ServerConfig
	Lookup         LookupConfig
	Metrics        bool
	LogDevelopment bool
}

// ServerConfig holds the settings of `webcheck serve`.
type ServerConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	TrustedProxies  []string
	RateLimit       int
	RateBurst       int
	ShutdownTimeout time.Duration
}

// LookupConfig configures the network lookups behind every scan.
type LookupConfig struct {
	Timeout      time.Duration
	Nameservers  []string
	CrtshBaseURL string
	WhoisServer  string
	FirewallURL  string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Server: ServerConfig{
			Addr:            defaultServerAddr,
			CORSOrigins:     []string{},
			TrustedProxies:  []string{},
			RateLimit:       defaultRateLimit,
			RateBurst:       defaultRateBurst,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Lookup: LookupConfig{
			Timeout:      constants.DefaultLookupTimeout,
			Nameservers:  []string{},
			CrtshBaseURL: constants.DefaultCrtshBaseURL,
			WhoisServer:  constants.DefaultWhoisServer,
		},
	}
}

// initConfig points viper at the config file and the WEBCHECK_ environment.
// A missing default config file is not an error; a missing --config file is.
func initConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(".webcheck")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the matching flag.
func applyConfigDefaults(v *viper.Viper, flags *pflag.FlagSet, cfg *CLIConfig) {
	if v.IsSet("server.addr") {
		applyStringDefault(flags, "addr", v.GetString("server.addr"), func(s string) { cfg.Server.Addr = s })
	}
	if v.IsSet("server.auth_token") {
		applyStringDefault(flags, "auth-token", v.GetString("server.auth_token"), func(s string) { cfg.Server.AuthToken = s })
	}
	if v.IsSet("server.cors_origins") {
		applyStringSliceDefault(flags, "cors-origins", v.GetStringSlice("server.cors_origins"), func(s []string) { cfg.Server.CORSOrigins = s })
	}
	if v.IsSet("server.trusted_proxies") {
		applyStringSliceDefault(flags, "trusted-proxies", v.GetStringSlice("server.trusted_proxies"), func(s []string) { cfg.Server.TrustedProxies = s })
	}
	if v.IsSet("server.rate_limit") {
		applyIntDefault(flags, "rate-limit", v.GetInt("server.rate_limit"), func(n int) { cfg.Server.RateLimit = n })
	}
	if v.IsSet("server.rate_burst") {
		applyIntDefault(flags, "rate-burst", v.GetInt("server.rate_burst"), func(n int) { cfg.Server.RateBurst = n })
	}
	if v.IsSet("server.shutdown_timeout") {
		applyDurationDefault(flags, "shutdown-timeout", v.GetDuration("server.shutdown_timeout"), func(d time.Duration) { cfg.Server.ShutdownTimeout = d })
	}

	if v.IsSet("lookup.timeout") {
		applyDurationDefault(flags, "timeout", v.GetDuration("lookup.timeout"), func(d time.Duration) { cfg.Lookup.Timeout = d })
	}
	if v.IsSet("dns.nameservers") {
		applyStringSliceDefault(flags, "nameservers", v.GetStringSlice("dns.nameservers"), func(s []string) { cfg.Lookup.Nameservers = s })
	}
	if v.IsSet("crtsh.base_url") {
		applyStringDefault(flags, "crtsh-url", v.GetString("crtsh.base_url"), func(s string) { cfg.Lookup.CrtshBaseURL = s })
	}
	if v.IsSet("whois.server") {
		applyStringDefault(flags, "whois-server", v.GetString("whois.server"), func(s string) { cfg.Lookup.WhoisServer = s })
	}
	if v.IsSet("upstream.firewall_url") {
		applyStringDefault(flags, "firewall-url", v.GetString("upstream.firewall_url"), func(s string) { cfg.Lookup.FirewallURL = s })
	}

	if v.IsSet("metrics.enabled") {
		applyBoolDefault(flags, "metrics", v.GetBool("metrics.enabled"), func(b bool) { cfg.Metrics = b })
	}
	if v.IsSet("log.development") {
		applyBoolDefault(flags, "log-development", v.GetBool("log.development"), func(b bool) { cfg.LogDevelopment = b })
	}
}

// validateConfig rejects settings that would make the server misbehave.
func validateConfig(cfg *CLIConfig) error {
	if cfg.Lookup.Timeout <= 0 {
		return &ConfigError{Key: "lookup.timeout", Reason: "must be positive"}
	}
	if cfg.Server.RateLimit < 0 {
		return &ConfigError{Key: "server.rate_limit", Reason: "must not be negative"}
	}
	if cfg.Server.RateBurst < 0 {
		return &ConfigError{Key: "server.rate_burst", Reason: "must not be negative"}
	}
	if _, err := api.ParseTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return &ConfigError{Key: "server.trusted_proxies", Reason: err.Error()}
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return &ConfigError{Key: "server.shutdown_timeout", Reason: "must be positive"}
	}
	return nil
}

// flagChanged reports whether the user set the named flag on the command line.
func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

// loadCommandConfig runs the config pipeline for cmd against the global viper.
func loadCommandConfig(cmd *cobra.Command) error {
	if err := initConfig(viper.GetViper(), cfgFile); err != nil {
		return err
	}
	applyConfigDefaults(viper.GetViper(), cmd.Flags(), cliConfig)
	return validateConfig(cliConfig)
}
