package core

import (
	"os"
	"strconv"
	"strings"
)

const (
	EnvClientID     = "BULLHORN_CLIENT_ID"
	EnvClientSecret = "BULLHORN_CLIENT_SECRET"
	EnvUsername     = "BULLHORN_USERNAME"
	EnvPassword     = "BULLHORN_PASSWORD"

	EnvRestURL      = "BULLHORN_REST_URL"
	EnvRestToken    = "BULLHORN_REST_TOKEN"
	EnvRefreshToken = "BULLHORN_REFRESH_TOKEN"
	EnvAccessToken  = "BULLHORN_ACCESS_TOKEN"

	EnvSessionTTLDays = "BULLHORN_SESSION_TTL_DAYS"
	EnvMinRemaining   = "BULLHORN_MIN_REMAINING"
	EnvHTTPTimeoutMS  = "BULLHORN_HTTP_TIMEOUT_MS"
	EnvHTTPRetries    = "BULLHORN_HTTP_RETRIES"
	EnvLoginInfoURL   = "BULLHORN_LOGIN_INFO_URL"
)

// Environ is an injectable environment snapshot. Lookups mirror os.LookupEnv
// so extraction stays testable without process-wide state.
type Environ func(key string) (string, bool)

// OSEnviron reads the process environment.
func OSEnviron() Environ {
	return os.LookupEnv
}

// MapEnviron wraps a fixed key-value snapshot, typically for tests.
func MapEnviron(values map[string]string) Environ {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

// CredentialsFromEnv extracts a CredentialSet from the environment. It
// returns nil unless all four keys are present and non-blank; a partial set
// is unusable and treated as absent.
func CredentialsFromEnv(env Environ) *CredentialSet {
	if env == nil {
		return nil
	}
	creds := CredentialSet{
		ClientID:     lookupTrimmed(env, EnvClientID),
		ClientSecret: lookupTrimmed(env, EnvClientSecret),
		Username:     lookupTrimmed(env, EnvUsername),
		Password:     lookupTrimmed(env, EnvPassword),
	}
	if !creds.Complete() {
		return nil
	}
	return &creds
}

// TokensFromEnv extracts whatever token material the environment carries.
// Unset keys stay zero; they are never represented as empty strings with
// meaning attached.
func TokensFromEnv(env Environ) TokenBundle {
	if env == nil {
		return TokenBundle{}
	}
	return TokenBundle{
		RestURL:      lookupTrimmed(env, EnvRestURL),
		RestToken:    lookupTrimmed(env, EnvRestToken),
		RefreshToken: lookupTrimmed(env, EnvRefreshToken),
		AccessToken:  lookupTrimmed(env, EnvAccessToken),
	}
}

// ConfigFromEnv builds the environment configuration layer for
// ResolveConfig. Keys that are unset or fail to parse leave the field zero,
// which means "not provided by this layer". Range validation happens when
// the merged config is validated, not here.
func ConfigFromEnv(env Environ) Config {
	if env == nil {
		return Config{}
	}
	return Config{
		TTLDays:               lookupInt(env, EnvSessionTTLDays),
		MinRemainingThreshold: lookupInt(env, EnvMinRemaining),
		LoginInfoURL:          lookupTrimmed(env, EnvLoginInfoURL),
		HTTP: HTTPConfig{
			TimeoutMS: lookupInt(env, EnvHTTPTimeoutMS),
			Retries:   lookupInt(env, EnvHTTPRetries),
		},
	}
}

func lookupTrimmed(env Environ, key string) string {
	value, ok := env(key)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

func lookupInt(env Environ, key string) int {
	raw := lookupTrimmed(env, key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
