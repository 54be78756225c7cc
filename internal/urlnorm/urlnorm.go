// Package urlnorm canonicalizes URLs for equality comparison.
//
// Two URLs that differ only in scheme, default port, a leading "www.",
// fragments, tracking parameters, or a trailing slash refer to the same
// resource for matching purposes, so the normal form strips all of those.
package urlnorm

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// trackingParams are query parameters that never affect resource identity.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
}

// Normalize returns the canonical form of a URL suitable for equality
// comparison. The scheme is dropped, the host is lowercased with any
// "www." prefix and default port removed, fragments and tracking query
// parameters are stripped, remaining parameters are sorted, and a trailing
// slash on the path is removed.
func Normalize(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}

	host := canonicalHost(u)
	path := strings.TrimSuffix(u.EscapedPath(), "/")

	query := ""
	if u.RawQuery != "" {
		values, err := url.ParseQuery(u.RawQuery)
		if err == nil {
			for param := range trackingParams {
				values.Del(param)
			}
			if len(values) > 0 {
				query = "?" + encodeSorted(values)
			}
		}
	}

	return host + path + query, nil
}

// Domain returns the lowercased host of a URL with any "www." prefix and
// port removed. Used for coarse contains-queries before exact comparison.
func Domain(raw string) (string, error) {
	u, err := parse(raw)
	if err != nil {
		return "", err
	}
	return canonicalHost(u), nil
}

func parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty url")
	}
	// Scheme-relative input is common in scraped metadata.
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url has no host: %q", raw)
	}
	return u, nil
}

func canonicalHost(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// encodeSorted encodes query values with deterministic parameter order.
func encodeSorted(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
