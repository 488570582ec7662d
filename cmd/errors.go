package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Key, e.Reason)
}

// OutputFormatError signals an unsupported --output value.
type OutputFormatError struct {
	Format string
}

func (e *OutputFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q (use text, json or yaml)", e.Format)
}

// ScanFailedError is returned when every lookup of a scan failed.
type ScanFailedError struct {
	URL    string
	Failed []string
}

func (e *ScanFailedError) Error() string {
	failed := append([]string(nil), e.Failed...)
	sort.Strings(failed)
	if len(failed) == 0 {
		return fmt.Sprintf("scan of %s failed", e.URL)
	}
	return fmt.Sprintf("scan of %s failed: %s", e.URL, strings.Join(failed, ", "))
}

const (
	exitOK         = 0
	exitError      = 1
	exitScanFailed = 2
)

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var scanErr *ScanFailedError
	if errors.As(err, &scanErr) {
		return exitScanFailed
	}
	return exitError
}
