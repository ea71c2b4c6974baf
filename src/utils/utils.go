package utils

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// credentialParams are query parameters treated as secrets in endpoints.
var credentialParams = []string{"token", "apikey", "api_key", "apiKey", "key", "secret"}

// -----------------------------------------------------------------------------

// MaskAPIKey hides credentials carried in an endpoint (query parameters and userinfo)
// so it can be logged or returned by status calls.
func MaskAPIKey(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}

	if u.User != nil {
		u.User = url.User("****")
	}

	query := u.Query()
	masked := false
	for _, param := range credentialParams {
		if query.Has(param) {
			query.Set(param, "****")
			masked = true
		}
	}
	if masked {
		u.RawQuery = query.Encode()
	}

	// url.String escapes the mask characters, undo it for readability
	return strings.ReplaceAll(u.String(), "%2A%2A%2A%2A", "****")
}

// -----------------------------------------------------------------------------

// ParseFloat converts a decimal string (as sent by exchanges, e.g. "0.00100000") to float64.
// Empty or malformed values yield 0, matching the zero default of missing tick fields.
func ParseFloat(value string) float64 {
	if value == "" {
		return 0
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}
