package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/scan"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

var scanCmd = &cobra.Command{
	Use:   "scan <url|host>",
	Short: "Scan one website and print the results",
	Long:  "Scan one website and print the results. A bare host is scanned over https.",
	Example: `  webcheck scan https://example.com
  webcheck scan example.com --whois --output yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")
		includeWhois, _ := cmd.Flags().GetBool("whois")
		format = strings.ToLower(format)
		if err := validateOutputFormat(format); err != nil {
			return err
		}

		// Lookup warnings end up in the summary; keep them off the terminal.
		quiet := logger.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))
		svc, _ := newScanService(cliConfig.Lookup, quiet, nil)

		opts := scan.BundleOptions{IncludeWhois: includeWhois}
		var progress *scanProgress
		if format == outputText {
			progress = newScanProgress(opts.Steps(), cmd.ErrOrStderr())
			opts.OnDone = progress.Done
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		result, err := svc.Bundle(ctx, scanTarget(args[0]), opts)
		if progress != nil {
			elapsed := progress.Finish()
			ok, fail := progress.Counts()
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d ok, %d failed in %s\n", colorInfo("→"), ok, fail, elapsed.Round(time.Millisecond))
		}
		if err != nil {
			return err
		}

		if err := writeBundle(cmd.OutOrStdout(), result, format); err != nil {
			return err
		}
		if len(result.Errors) >= opts.Steps() {
			failed := make([]string, 0, len(result.Errors))
			for name := range result.Errors {
				failed = append(failed, name)
			}
			return &ScanFailedError{URL: result.URL, Failed: failed}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringP("output", "O", outputText, "Output format: text, json or yaml")
	scanCmd.Flags().Bool("whois", false, "Include the WHOIS lookup")
}

// scanTarget turns a bare host into an https URL. Anything without a host is
// passed through for the scanner to reject.
func scanTarget(arg string) string {
	if info := checker.ParseTarget(arg); info.FullURL != "" {
		return info.FullURL
	}
	return arg
}

func validateOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	}
	return &OutputFormatError{Format: format}
}

func writeBundle(w io.Writer, result *scan.BundleResult, format string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case outputYAML:
		return writeYAML(w, result)
	case outputText:
		return writeSummary(w, result)
	}
	return &OutputFormatError{Format: format}
}

// writeYAML goes through JSON so the YAML keys match the API payloads.
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return enc.Close()
}

func writeSummary(w io.Writer, result *scan.BundleResult) error {
	fmt.Fprintf(w, "%s %s\n\n", colorInfo("Scan of"), result.URL)

	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LOOKUP\tSTATUS\tRESULT")
	for _, row := range summaryRows(result) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", row[0], row[1], row[2])
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if len(result.Errors) > 0 {
		names := make([]string, 0, len(result.Errors))
		for name := range result.Errors {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "\n%s\n", colorWarn("Errors:"))
		for _, name := range names {
			fmt.Fprintf(w, "  %s: %s\n", name, result.Errors[name])
		}
	}
	return nil
}

func summaryRows(result *scan.BundleResult) [][3]string {
	status := func(name string, present bool) string {
		if _, failed := result.Errors[name]; failed || !present {
			return formatStatusWithColor("error")
		}
		return formatStatusWithColor("ok")
	}

	rows := [][3]string{
		{"firewall", status(scan.LookupFirewall, result.Firewall != nil), describeFirewall(result.Firewall)},
		{"domains", status(scan.LookupDomains, result.Domains != nil), describeDomains(result.Domains)},
		{"tls", status(scan.LookupTLS, result.TLS != nil), describeTLS(result.TLS)},
		{"server", status(scan.LookupServerInfo, result.ServerInfo != nil), describeServer(result.ServerInfo)},
		{"security", status(scan.LookupSecurity, result.Security != nil), describeSecurity(result.Security)},
	}
	if result.Whois != nil || result.Errors[scan.LookupWhois] != "" {
		rows = append(rows, [3]string{"whois", status(scan.LookupWhois, result.Whois != nil), describeWhois(result.Whois)})
	}
	return rows
}

func describeFirewall(r *scan.FirewallReport) string {
	switch {
	case r == nil:
		return "-"
	case !r.HasWAF:
		return colorWarn("no WAF detected")
	case r.WAF != "":
		return colorSuccess(r.WAF)
	default:
		return colorSuccess("WAF detected")
	}
}

func describeDomains(r *scan.DomainsReport) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d names in certificate logs", r.Count)
}

func describeTLS(r *scan.TLSReport) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%s (%d/100) %s", formatGradeWithColor(r.LetterGrade), r.Grade, r.Version)
}

func describeServer(r *scan.ServerInfo) string {
	if r == nil {
		return "-"
	}
	parts := []string{r.IP}
	if r.ASN != "" {
		parts = append(parts, "AS"+r.ASN)
	}
	if r.ASName != "" {
		parts = append(parts, r.ASName)
	}
	if r.Country != "" {
		parts = append(parts, "("+r.Country+")")
	}
	if r.Server != "" {
		parts = append(parts, "server="+r.Server)
	}
	return strings.Join(parts, " ")
}

func describeSecurity(r *scan.SecurityReport) string {
	if r == nil {
		return "-"
	}
	desc := fmt.Sprintf("%s (%d/%d)", formatGradeWithColor(r.Grade), r.Score, r.MaxScore)
	if n := len(r.Missing); n > 0 {
		desc += fmt.Sprintf(", %d missing headers", n)
	}
	if r.Client != nil && len(r.Client.Issues) > 0 {
		desc += fmt.Sprintf(", %d page issues", len(r.Client.Issues))
	}
	return desc
}

func describeWhois(r *scan.WhoisReport) string {
	if r == nil {
		return "-"
	}
	parts := []string{}
	if r.Registrar != "" {
		parts = append(parts, r.Registrar)
	}
	if r.Expires != "" {
		parts = append(parts, "expires "+r.Expires)
	}
	if len(parts) == 0 {
		return r.Domain
	}
	return strings.Join(parts, ", ")
}
