package browser

import (
	"net/url"
	"strings"
)

// BlankURL is the placeholder page of a fresh tab
const BlankURL = "about:blank"

// DefaultSearchURL receives bare queries that do not look like a host
const DefaultSearchURL = "https://duckduckgo.com/?q="

var knownSchemes = []string{"http://", "https://", "about:", "data:", "file://"}

// IsBlank reports whether u is the blank placeholder
func IsBlank(u string) bool {
	return u == "" || u == BlankURL
}

// IsInternal reports whether u uses a scheme that never touches the network
func IsInternal(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:")
}

// NormalizeURL turns user input into a loadable URL. Input that already has a
// scheme is kept, host-like input gets https://, anything else becomes a
// search. Empty input returns "".
func NormalizeURL(raw, searchURL string) string {
	input := strings.TrimSpace(raw)
	if input == "" {
		return ""
	}

	lower := strings.ToLower(input)
	for _, scheme := range knownSchemes {
		if strings.HasPrefix(lower, scheme) {
			return input
		}
	}

	if looksLikeHost(input) {
		return "https://" + input
	}

	if searchURL == "" {
		searchURL = DefaultSearchURL
	}
	return searchURL + url.QueryEscape(input)
}

func looksLikeHost(input string) bool {
	if strings.ContainsAny(input, " \t") {
		return false
	}
	host := input
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	return strings.Contains(host, ".") && !strings.HasPrefix(host, ".") && !strings.HasSuffix(host, ".")
}
