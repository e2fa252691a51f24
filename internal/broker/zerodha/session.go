package zerodha

import (
	"fmt"
	"net/url"
	"strings"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// LoginURL is the Kite page that redirects back with a request_token.
func LoginURL(apiKey string) string {
	return kiteconnect.New(apiKey).GetLoginURL()
}

// RequestToken extracts request_token from the post-login redirect URL.
// A bare token is accepted as is.
func RequestToken(redirect string) (string, error) {
	redirect = strings.TrimSpace(redirect)
	if redirect == "" {
		return "", fmt.Errorf("empty redirect url")
	}
	if !strings.Contains(redirect, "?") && !strings.Contains(redirect, "=") {
		return redirect, nil
	}
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	if u.RawQuery == "" {
		q, _ = url.ParseQuery(redirect)
	}
	if status := q.Get("status"); status != "" && status != "success" {
		return "", fmt.Errorf("login status %q", status)
	}
	tok := q.Get("request_token")
	if tok == "" {
		return "", fmt.Errorf("no request_token in %q", redirect)
	}
	return tok, nil
}

// GenerateAccessToken exchanges a request token for an access token.
func GenerateAccessToken(apiKey, apiSecret, requestToken string) (string, error) {
	sess, err := kiteconnect.New(apiKey).GenerateSession(requestToken, apiSecret)
	if err != nil {
		return "", fmt.Errorf("generate session: %w", err)
	}
	return sess.AccessToken, nil
}
