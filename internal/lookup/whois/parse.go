package whois

import (
	"bufio"
	"strings"

	"github.com/khanhnv2901/webcheck/internal/shared/constants"
)

// Field aliases across registries. The first non-empty value wins.
var (
	registrarKeys    = []string{"registrar", "sponsoring registrar", "registrar name", "registrar organization"}
	registrarURLKeys = []string{"registrar url", "referral url", "registrar website"}
	createdKeys      = []string{"creation date", "created", "created on", "registered", "registered on", "domain registration date", "registration time", "domain record activated"}
	updatedKeys      = []string{"updated date", "last updated", "last-update", "last modified", "changed", "modified"}
	expiresKeys      = []string{"registry expiry date", "registrar registration expiration date", "expiration date", "expiry date", "expires", "expires on", "paid-till", "expire"}
	nameServerKeys   = []string{"name server", "nserver", "nameserver", "name servers", "nameservers"}
	statusKeys       = []string{"domain status", "status"}
	dnssecKeys       = []string{"dnssec"}
	registrantOrgKey = []string{"registrant organization", "registrant organisation", "registrant org"}
	registrantCCKeys = []string{"registrant country", "registrant country code"}
)

// Parse extracts the known fields from a raw WHOIS response.
func Parse(raw string) *Record {
	record := &Record{Raw: raw, NameServers: []string{}, Status: []string{}}
	fields := make(map[string]string)
	seenNS := make(map[string]bool)
	seenStatus := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxWhoisResponseBytes)
	for scanner.Scan() {
		key, value, ok := splitField(scanner.Text())
		if !ok || value == "" {
			continue
		}

		switch {
		case contains(nameServerKeys, key):
			// trailing tokens are glue addresses
			ns := strings.TrimSuffix(strings.ToLower(strings.Fields(value)[0]), ".")
			if strings.Contains(ns, ".") && !seenNS[ns] {
				seenNS[ns] = true
				record.NameServers = append(record.NameServers, ns)
			}
		case contains(statusKeys, key):
			status := strings.Fields(value)[0]
			if !seenStatus[status] {
				seenStatus[status] = true
				record.Status = append(record.Status, status)
			}
		default:
			if _, ok := fields[key]; !ok {
				fields[key] = value
			}
		}
	}

	record.Registrar = first(fields, registrarKeys)
	record.RegistrarURL = first(fields, registrarURLKeys)
	record.Created = first(fields, createdKeys)
	record.Updated = first(fields, updatedKeys)
	record.Expires = first(fields, expiresKeys)
	record.DNSSEC = first(fields, dnssecKeys)
	record.RegistrantOrg = first(fields, registrantOrgKey)
	record.RegistrantCountry = first(fields, registrantCCKeys)
	return record
}

func (r *Record) isEmpty() bool {
	return r.Registrar == "" && r.Created == "" && r.Expires == "" && len(r.NameServers) == 0
}

func first(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
