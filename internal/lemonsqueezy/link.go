package lemonsqueezy

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildCheckoutURL appends the user id as custom checkout data and pre-fills the email.
// Query parameters already present on the base URL are kept.
func BuildCheckoutURL(baseURL, userID, email string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse checkout url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("checkout url %q is not absolute", baseURL)
	}

	q := u.Query()
	q.Set("checkout[custom][user_id]", userID)
	if email != "" {
		q.Set("checkout[email]", email)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
