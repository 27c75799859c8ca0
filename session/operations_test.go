package session

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bullhorn-auth/core"
	"github.com/goliatone/go-bullhorn-auth/devkit"
	"github.com/goliatone/go-bullhorn-auth/transport"
)

func redirectScript(location string) devkit.TransportScript {
	headers := map[string]string{}
	if location != "" {
		headers["Location"] = location
	}
	return devkit.TransportScript{Response: core.TransportResponse{
		StatusCode: 302,
		Status:     "302 Found",
		Headers:    headers,
	}}
}

func TestDiscover_RejectsIncompleteLoginInfo(t *testing.T) {
	cases := []struct {
		name   string
		script devkit.TransportScript
	}{
		{"non-200", jsonResponse(500, `{}`)},
		{"missing rest url", jsonResponse(200, `{"oauthUrl":"`+testOAuthURL+`"}`)},
		{"missing oauth url", jsonResponse(200, `{"restUrl":"`+testRestURL+`"}`)},
		{"invalid json", jsonResponse(200, `not-json`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, testConfig(), tc.script)
			if _, err := client.discover(context.Background(), "api.user"); err == nil {
				t.Fatalf("expected discovery failure")
			}
		})
	}
}

func TestDiscover_TrimsTrailingSlashFromOAuthURL(t *testing.T) {
	client, _ := newTestClient(t, testConfig(),
		jsonResponse(200, `{"oauthUrl":"`+testOAuthURL+`/","restUrl":"`+testRestURL+`"}`),
	)
	info, err := client.discover(context.Background(), "api.user")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if info.OAuthURL != testOAuthURL {
		t.Fatalf("expected normalized oauth url, got %q", info.OAuthURL)
	}
}

func TestAuthorize_LocationFailures(t *testing.T) {
	cases := []struct {
		name   string
		script devkit.TransportScript
	}{
		{"no location header", redirectScript("")},
		{"malformed location", redirectScript("https://client.example.com/cb\x01?code=X")},
		{"location without code", redirectScript("https://client.example.com/cb?state=only")},
		{"blank code", redirectScript("https://client.example.com/cb?code=")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, testConfig(), tc.script)
			_, err := client.authorize(context.Background(), testOAuthURL, *fullCredentials())
			if err == nil {
				t.Fatalf("expected authorize failure")
			}
			var richErr *goerrors.Error
			if !goerrors.As(err, &richErr) {
				t.Fatalf("expected envelope error, got %T", err)
			}
			if richErr.Category != goerrors.CategoryAuth {
				t.Fatalf("authorize failures are auth failures, got %v", richErr.Category)
			}
		})
	}
}

func TestAuthorize_SuppressesRedirectFollowing(t *testing.T) {
	client, fake := newTestClient(t, testConfig(),
		redirectScript("https://client.example.com/cb?code=AUTHCODE&state=x"),
	)
	code, err := client.authorize(context.Background(), testOAuthURL, *fullCredentials())
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if code != "AUTHCODE" {
		t.Fatalf("expected code from Location query, got %q", code)
	}
	requests := fake.Requests()
	if len(requests) != 1 || !requests[0].DisableRedirect {
		t.Fatalf("authorize must run with redirects disabled: %+v", requests)
	}
}

func TestPingSession_SoftFailureShapes(t *testing.T) {
	cases := []struct {
		name   string
		script devkit.TransportScript
	}{
		{"unauthorized", pingResponse(401, "")},
		{"missing header", pingResponse(200, "")},
		{"non-numeric header", pingResponse(200, "plenty")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, testConfig(), tc.script)
			if _, err := client.pingSession(context.Background(), testRestURL, "rt"); err == nil {
				t.Fatalf("expected ping failure")
			}
		})
	}
}

func TestPingSession_ReadsRemainingQuota(t *testing.T) {
	client, fake := newTestClient(t, testConfig(), pingResponse(200, " 42 "))
	remaining, err := client.pingSession(context.Background(), testRestURL+"///", "rt")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if remaining != 42 {
		t.Fatalf("expected 42 remaining, got %d", remaining)
	}
	requests := fake.Requests()
	if requests[0].URL != "https://rest.example.com/rest-services/abc/ping" {
		t.Fatalf("trailing slashes must collapse before the path join, got %s", requests[0].URL)
	}
}

func TestRestLogin_RejectsIncompleteSession(t *testing.T) {
	cases := []struct {
		name   string
		script devkit.TransportScript
	}{
		{"non-200", jsonResponse(401, `{}`)},
		{"missing token", jsonResponse(200, `{"restUrl":"`+testRestURL+`"}`)},
		{"missing rest url", jsonResponse(200, `{"BhRestToken":"RT"}`)},
		{"invalid json", jsonResponse(200, `<html>`)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, testConfig(), tc.script)
			if _, err := client.restLogin(context.Background(), testRestURL, "access"); err == nil {
				t.Fatalf("expected rest login failure")
			}
		})
	}
}

func TestRefreshExchange_RejectionCarriesStatusDetail(t *testing.T) {
	client, _ := newTestClient(t, testConfig(), devkit.TransportScript{Response: core.TransportResponse{
		StatusCode: 400,
		Status:     "400 Bad Request",
		Headers: map[string]string{
			transport.HeaderRateLimitRemaining: "120",
		},
		Body: []byte(`{"error":"invalid_grant","error_description":"token revoked"}`),
	}})

	_, err := client.refreshExchange(context.Background(), testOAuthURL, "stale", *fullCredentials())
	if err == nil {
		t.Fatalf("expected exchange rejection")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected envelope error, got %T", err)
	}
	if richErr.Metadata["status_code"] != 400 || richErr.Metadata["status"] != "400 Bad Request" {
		t.Fatalf("expected status line in metadata, got %+v", richErr.Metadata)
	}
	if richErr.Metadata[transport.HeaderRateLimitRemaining] != "120" {
		t.Fatalf("expected rate limit header in metadata, got %+v", richErr.Metadata)
	}
	// The response body may carry token material, so it never reaches the
	// error envelope.
	if _, ok := richErr.Metadata["body"]; ok {
		t.Fatalf("response body must not be captured: %+v", richErr.Metadata)
	}
}

func TestDecodeTokenPair_RequiresAccessToken(t *testing.T) {
	res := core.TransportResponse{StatusCode: 200, Body: []byte(`{"refresh_token":"R2"}`)}
	if _, err := decodeTokenPair(res, "session: decode exchange response"); err == nil {
		t.Fatalf("expected failure without access token")
	}

	res.Body = []byte(`{"access_token":" A ","refresh_token":" R2 "}`)
	pair, err := decodeTokenPair(res, "session: decode exchange response")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pair.AccessToken != "A" || pair.RefreshToken != "R2" {
		t.Fatalf("expected trimmed tokens, got %+v", pair)
	}
}

func TestStatusError_AuthStatusesMapToAuthCategory(t *testing.T) {
	for _, status := range []int{401, 403} {
		err := statusError("session: ping rejected", core.TransportResponse{StatusCode: status, Status: "denied"})
		var richErr *goerrors.Error
		if !goerrors.As(err, &richErr) {
			t.Fatalf("expected envelope error, got %T", err)
		}
		if richErr.Category != goerrors.CategoryAuth {
			t.Fatalf("status %d: expected auth category, got %v", status, richErr.Category)
		}
	}
	err := statusError("session: ping rejected", core.TransportResponse{StatusCode: 404, Status: "missing"})
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected envelope error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryExternal {
		t.Fatalf("expected external category for 404, got %v", richErr.Category)
	}
}
