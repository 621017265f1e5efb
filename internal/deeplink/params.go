package deeplink

import (
	"net/url"
	"strings"
)

// ParseCallbackParams extracts the query parameters from a redirect URL.
// It accepts regular http(s) URLs, custom-scheme URLs (fitpro://callback?...)
// and bare query strings. Unparseable pairs are skipped; the last value
// wins for repeated keys.
func ParseCallbackParams(raw string) map[string]string {
	params := map[string]string{}

	query := ""
	if i := strings.Index(raw, "?"); i >= 0 {
		query = raw[i+1:]
	} else if !strings.Contains(raw, "://") && strings.Contains(raw, "=") {
		// bare query string ("code=x&state=y")
		query = raw
	}
	if query == "" {
		return params
	}

	// strip a fragment if the provider appended one
	if i := strings.Index(query, "#"); i >= 0 {
		query = query[:i]
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		// fall back to manual splitting so a single bad pair does not
		// discard the rest
		for _, pair := range strings.Split(query, "&") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			ku, err1 := url.QueryUnescape(k)
			vu, err2 := url.QueryUnescape(v)
			if err1 != nil || err2 != nil {
				continue
			}
			params[ku] = vu
		}
		return params
	}

	for k, vs := range values {
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}
	return params
}
