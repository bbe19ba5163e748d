package fetch

import (
	"net/url"
	"strings"

	"github.com/mvdan/xurls"
)

// ParseURL accepts what a user pasted into the URL box. A bare absolute
// http(s) URL is used as is; otherwise the first URL found in the text is.
func ParseURL(input string) (string, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return "", &FetchError{URL: input, Err: ErrInvalidURL}
	}

	if u, err := url.Parse(raw); err == nil && isHTTP(u) {
		return u.String(), nil
	}

	found := xurls.Strict.FindString(raw)
	if found == "" {
		return "", &FetchError{URL: raw, Err: ErrInvalidURL}
	}
	u, err := url.Parse(found)
	if err != nil || !isHTTP(u) {
		return "", &FetchError{URL: raw, Err: ErrInvalidURL}
	}
	return u.String(), nil
}

func isHTTP(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
