package security

import (
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidScheme = fmt.Errorf("only http and https URLs are allowed")
	ErrMissingHost   = fmt.Errorf("URL has no host")
)

// ValidateBaseURL checks that rawURL is an absolute http(s) URL with a host
// and no query or fragment, so request paths can be appended to it.
func ValidateBaseURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidScheme
	}
	if parsed.Host == "" || parsed.Hostname() == "" {
		return ErrMissingHost
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("base URL must not carry a query or fragment")
	}

	return nil
}

// ResolveURL resolves ref (typically a server-relative preview path) against
// base. Absolute refs are returned unchanged if they are http(s).
func ResolveURL(base, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if refURL.IsAbs() {
		if refURL.Scheme != "http" && refURL.Scheme != "https" {
			return "", ErrInvalidScheme
		}
		return refURL.String(), nil
	}

	baseURL, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
