// Package crtsh enumerates names seen in Certificate Transparency logs via crt.sh.
package crtsh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/khanhnv2901/webcheck/internal/checker"
	"github.com/khanhnv2901/webcheck/internal/lookup"
	"github.com/khanhnv2901/webcheck/internal/shared/constants"
	apperrors "github.com/khanhnv2901/webcheck/internal/shared/errors"
)

// maxResponseBytes bounds a crt.sh answer; popular domains return many MB.
const maxResponseBytes = 32 << 20

// entry is the subset of a crt.sh JSON row that is used.
type entry struct {
	CommonName string `json:"common_name"`
	NameValue  string `json:"name_value"`
}

// Client queries a crt.sh compatible endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a Client for baseURL, falling back to the public crt.sh.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = constants.DefaultCrtshBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Domains returns the sorted, de-duplicated names equal to or under domain
// that appear in logged certificates.
func (c *Client) Domains(ctx context.Context, domain string) ([]string, error) {
	domain = checker.NormalizeDomain(domain)
	if domain == "" {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, apperrors.ErrMissingDomain)
	}

	query := url.Values{}
	query.Set("q", "%."+domain)
	query.Set("output", "json")
	endpoint := c.BaseURL + "/?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create crt.sh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, lookup.Classify(err, "crt.sh")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("crt.sh: %w: status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, lookup.Classify(err, "crt.sh")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return []string{}, nil
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("crt.sh: %w: decode: %v", apperrors.ErrUpstream, err)
	}

	return collectNames(entries, domain), nil
}

// collectNames flattens name_value fields into a sorted set of names under domain.
func collectNames(entries []entry, domain string) []string {
	seen := make(map[uint64]struct{}, len(entries))
	names := make([]string, 0, len(entries))

	add := func(raw string) {
		name := checker.NormalizeDomain(raw)
		name = strings.TrimPrefix(name, "*.")
		if name == "" || !withinDomain(name, domain) {
			return
		}
		key := xxh3.HashString(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}

	for _, e := range entries {
		for _, line := range strings.Split(e.NameValue, "\n") {
			add(line)
		}
		add(e.CommonName)
	}

	sort.Strings(names)
	return names
}

func withinDomain(name, domain string) bool {
	return name == domain || strings.HasSuffix(name, "."+domain)
}
