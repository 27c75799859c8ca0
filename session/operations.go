package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bullhorn-auth/core"
	"github.com/goliatone/go-bullhorn-auth/transport"
)

// Header carrying the REST session token on authenticated calls.
const headerRestToken = "BhRestToken"

type loginInfo struct {
	OAuthURL string `json:"oauthUrl"`
	RestURL  string `json:"restUrl"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type restSession struct {
	RestURL   string `json:"restUrl"`
	RestToken string `json:"BhRestToken"`
}

// discover resolves the per-user OAuth and REST base URLs. Unauthenticated;
// failures are hard.
func (c *Client) discover(ctx context.Context, username string) (loginInfo, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    c.config.LoginInfoURL,
		Query: map[string]string{
			"username": username,
		},
	})
	if err != nil {
		return loginInfo{}, err
	}
	if res.StatusCode != http.StatusOK {
		return loginInfo{}, statusError("session: login info request failed", res)
	}

	var info loginInfo
	if err := json.Unmarshal(res.Body, &info); err != nil {
		return loginInfo{}, core.WrapError(err, goerrors.CategoryExternal, "session: decode login info response", nil)
	}
	info.OAuthURL = strings.TrimRight(strings.TrimSpace(info.OAuthURL), "/")
	info.RestURL = strings.TrimSpace(info.RestURL)
	if info.OAuthURL == "" || info.RestURL == "" {
		return loginInfo{}, core.NewError(
			"session: login info response missing oauthUrl or restUrl",
			goerrors.CategoryExternal,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	return info, nil
}

// refreshExchange trades a refresh token for a fresh access/refresh pair.
// Any failure here means "this path is unavailable", so the caller treats
// the returned error as a soft signal, not a terminal one.
func (c *Client) refreshExchange(ctx context.Context, oauthURL string, refreshToken string, creds core.CredentialSet) (tokenPair, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    oauthURL + "/token",
		Query: map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": refreshToken,
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
		},
	})
	if err != nil {
		return tokenPair{}, err
	}
	if res.StatusCode != http.StatusOK {
		return tokenPair{}, statusError("session: refresh token exchange rejected", res)
	}
	return decodeTokenPair(res, "session: decode refresh exchange response")
}

// authorize obtains a short-lived authorization code by submitting the
// non-interactive login form. Redirect-following is suppressed; the success
// signal is a Location header whose query carries a code parameter. An
// absent or malformed Location is a hard failure, not distinguished further.
func (c *Client) authorize(ctx context.Context, oauthURL string, creds core.CredentialSet) (string, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method:          http.MethodGet,
		URL:             oauthURL + "/authorize",
		DisableRedirect: true,
		Query: map[string]string{
			"client_id":     creds.ClientID,
			"response_type": "code",
			"username":      creds.Username,
			"password":      creds.Password,
			"action":        "Login",
		},
	})
	if err != nil {
		return "", err
	}

	location := strings.TrimSpace(res.Headers["Location"])
	if location == "" {
		return "", core.NewError(
			"session: authorize response carried no Location header",
			goerrors.CategoryAuth,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return "", core.NewError(
			"session: authorize redirect location is malformed",
			goerrors.CategoryAuth,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	code := strings.TrimSpace(parsed.Query().Get("code"))
	if code == "" {
		return "", core.NewError(
			"session: authorize redirect carried no code",
			goerrors.CategoryAuth,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	return code, nil
}

// codeExchange trades an authorization code for access/refresh tokens.
func (c *Client) codeExchange(ctx context.Context, oauthURL string, code string, creds core.CredentialSet) (tokenPair, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    oauthURL + "/token",
		Query: map[string]string{
			"grant_type":    "authorization_code",
			"code":          code,
			"client_id":     creds.ClientID,
			"client_secret": creds.ClientSecret,
		},
	})
	if err != nil {
		return tokenPair{}, err
	}
	if res.StatusCode != http.StatusOK {
		return tokenPair{}, statusError("session: authorization code exchange rejected", res)
	}
	return decodeTokenPair(res, "session: decode code exchange response")
}

// restLogin trades an access token for a REST session. The returned restUrl
// and token always come from the response body.
func (c *Client) restLogin(ctx context.Context, restURL string, accessToken string) (restSession, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    strings.TrimRight(restURL, "/") + "/login",
		Query: map[string]string{
			"version":      "*",
			"access_token": accessToken,
			"ttl":          strconv.Itoa(c.config.TTLDays),
		},
	})
	if err != nil {
		return restSession{}, err
	}
	if res.StatusCode != http.StatusOK {
		return restSession{}, statusError("session: rest login rejected", res)
	}

	var session restSession
	if err := json.Unmarshal(res.Body, &session); err != nil {
		return restSession{}, core.WrapError(err, goerrors.CategoryExternal, "session: decode rest login response", nil)
	}
	session.RestURL = strings.TrimSpace(session.RestURL)
	session.RestToken = strings.TrimSpace(session.RestToken)
	if session.RestURL == "" || session.RestToken == "" {
		return restSession{}, core.NewError(
			"session: rest login response missing restUrl or session token",
			goerrors.CategoryExternal,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	return session, nil
}

// pingSession validates an existing REST session. Success is a 2xx response
// with a parseable rate-limit-remaining header; everything else is a soft
// failure the caller converts into "try the next path".
func (c *Client) pingSession(ctx context.Context, restURL string, restToken string) (int, error) {
	res, err := c.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodGet,
		URL:    strings.TrimRight(restURL, "/") + "/ping",
		Headers: map[string]string{
			headerRestToken: restToken,
		},
	})
	if err != nil {
		return 0, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return 0, statusError("session: ping rejected", res)
	}

	raw := strings.TrimSpace(res.Headers[transport.HeaderRateLimitRemaining])
	if raw == "" {
		return 0, core.NewError(
			"session: ping response carried no rate-limit-remaining header",
			goerrors.CategoryExternal,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	remaining, err := strconv.Atoi(raw)
	if err != nil {
		return 0, core.NewError(
			"session: ping rate-limit-remaining header is not numeric",
			goerrors.CategoryExternal,
			map[string]any{"status_code": res.StatusCode, transport.HeaderRateLimitRemaining: raw},
		)
	}
	return remaining, nil
}

func decodeTokenPair(res core.TransportResponse, message string) (tokenPair, error) {
	var pair tokenPair
	if err := json.Unmarshal(res.Body, &pair); err != nil {
		return tokenPair{}, core.WrapError(err, goerrors.CategoryExternal, message, nil)
	}
	pair.AccessToken = strings.TrimSpace(pair.AccessToken)
	pair.RefreshToken = strings.TrimSpace(pair.RefreshToken)
	if pair.AccessToken == "" {
		return tokenPair{}, core.NewError(
			message+": no access token issued",
			goerrors.CategoryExternal,
			map[string]any{"status_code": res.StatusCode},
		)
	}
	return pair, nil
}

// statusError reports a non-retryable unexpected status. Only the status
// line and the two rate-limit headers are captured; never the body.
func statusError(message string, res core.TransportResponse) error {
	category := goerrors.CategoryExternal
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		category = goerrors.CategoryAuth
	}
	metadata := map[string]any{
		"status_code": res.StatusCode,
		"status":      strings.TrimSpace(res.Status),
	}
	for _, header := range []string{transport.HeaderRateLimitRemaining, transport.HeaderRateLimitLimit} {
		if value := strings.TrimSpace(res.Headers[header]); value != "" {
			metadata[header] = value
		}
	}
	return core.NewError(fmt.Sprintf("%s: status %d", message, res.StatusCode), category, metadata).
		WithCode(res.StatusCode)
}
