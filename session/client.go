package session

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-bullhorn-auth/core"
	"github.com/goliatone/go-bullhorn-auth/transport"
)

// AcquireInput bundles whatever the caller has: an optional full credential
// set and an optional snapshot of previously obtained tokens.
type AcquireInput struct {
	Credentials *core.CredentialSet
	Tokens      core.TokenBundle
}

// Client acquires REST sessions. It holds configuration and a transport
// only; every Acquire call is independent, so concurrent use needs no
// coordination.
type Client struct {
	config    core.Config
	transport core.TransportAdapter
	logger    core.Logger
}

type clientBuilder struct {
	transport      core.TransportAdapter
	httpClient     transport.HTTPDoer
	logger         core.Logger
	loggerProvider core.LoggerProvider
	retryObserver  core.RetryObserver
}

type Option func(*clientBuilder)

// WithTransport replaces the HTTP-backed adapter. The retry policy still
// wraps whatever is supplied here.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transport = adapter
	}
}

func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(b *clientBuilder) {
		b.httpClient = client
	}
}

func WithLogger(logger core.Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

// WithRetryObserver registers a callback invoked between transport retry
// attempts. Its failures are isolated and never interrupt a call.
func WithRetryObserver(observer core.RetryObserver) Option {
	return func(b *clientBuilder) {
		b.retryObserver = observer
	}
}

// New validates the configuration eagerly; an invalid config never reaches
// the network.
func New(cfg core.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, core.WrapError(err, goerrors.CategoryBadInput, "session: invalid config", nil)
	}

	builder := clientBuilder{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("bullhorn-auth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("bullhorn-auth"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	inner := builder.transport
	if inner == nil {
		inner = transport.NewRESTAdapter(builder.httpClient)
	}

	return &Client{
		config:    cfg,
		transport: transport.NewRetryingAdapter(inner, transport.PolicyFromConfig(cfg.HTTP, builder.retryObserver)),
		logger:    logger,
	}, nil
}

// Acquire obtains a REST session through the cheapest viable path. Path
// order is fixed: existing session, refresh exchange, access-token login,
// full password-grant login. A soft failure on the existing or refresh path
// moves evaluation to the next path; everything else raises.
func (c *Client) Acquire(ctx context.Context, input AcquireInput) (core.SessionResult, error) {
	if c == nil || c.transport == nil {
		return core.SessionResult{}, core.NewError("session: client is not configured", goerrors.CategoryInternal, nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()

	if input.Tokens.HasSession() {
		if result, ok := c.tryExisting(ctx, input.Tokens); ok {
			c.logResult(ctx, startedAt, result)
			return result, nil
		}
	}

	if c.refreshTriggered(input) {
		result, ok, err := c.tryRefresh(ctx, input)
		if err != nil {
			c.logFailure(ctx, "refresh", err)
			return core.SessionResult{}, err
		}
		if ok {
			c.logResult(ctx, startedAt, result)
			return result, nil
		}
	}

	if strings.TrimSpace(input.Tokens.AccessToken) != "" {
		result, err := c.acquireWithAccessToken(ctx, input)
		if err != nil {
			c.logFailure(ctx, "access", err)
			return core.SessionResult{}, err
		}
		c.logResult(ctx, startedAt, result)
		return result, nil
	}

	if input.Credentials == nil || !input.Credentials.Complete() {
		err := insufficientInputError()
		c.logFailure(ctx, "full", err)
		return core.SessionResult{}, err
	}

	result, err := c.acquireFull(ctx, *input.Credentials)
	if err != nil {
		c.logFailure(ctx, "full", err)
		return core.SessionResult{}, err
	}
	c.logResult(ctx, startedAt, result)
	return result, nil
}

// tryExisting validates the caller's session and quota. Both a failed ping
// and a quota at or below the threshold demote this path without raising.
func (c *Client) tryExisting(ctx context.Context, tokens core.TokenBundle) (core.SessionResult, bool) {
	remaining, err := c.pingSession(ctx, tokens.RestURL, tokens.RestToken)
	if err != nil {
		c.logInfo(ctx, "existing session unavailable, trying next path", map[string]any{
			"path":   "existing",
			"reason": err.Error(),
		})
		return core.SessionResult{}, false
	}
	if remaining <= c.config.MinRemainingThreshold {
		c.logInfo(ctx, "existing session below quota threshold, trying next path", map[string]any{
			"path":          "existing",
			"min_remaining": remaining,
			"threshold":     c.config.MinRemainingThreshold,
		})
		return core.SessionResult{}, false
	}
	return core.SessionResult{
		RestURL:      tokens.RestURL,
		RestToken:    tokens.RestToken,
		RefreshToken: tokens.RefreshToken,
		AccessToken:  tokens.AccessToken,
		MinRemaining: &remaining,
		Method:       core.MethodExisting,
	}, true
}

func (c *Client) refreshTriggered(input AcquireInput) bool {
	if strings.TrimSpace(input.Tokens.RefreshToken) == "" || input.Credentials == nil {
		return false
	}
	creds := *input.Credentials
	return strings.TrimSpace(creds.ClientID) != "" &&
		strings.TrimSpace(creds.ClientSecret) != "" &&
		strings.TrimSpace(creds.Username) != ""
}

// tryRefresh runs discover then the refresh exchange. Only an exchange
// failure is soft; discovery and rest-login failures raise, because they
// signal the service is unreachable rather than the token being stale.
func (c *Client) tryRefresh(ctx context.Context, input AcquireInput) (core.SessionResult, bool, error) {
	info, err := c.discover(ctx, input.Credentials.Username)
	if err != nil {
		return core.SessionResult{}, false, err
	}

	pair, err := c.refreshExchange(ctx, info.OAuthURL, input.Tokens.RefreshToken, *input.Credentials)
	if err != nil {
		c.logInfo(ctx, "refresh exchange unavailable, trying next path", map[string]any{
			"path":   "refresh",
			"reason": err.Error(),
		})
		return core.SessionResult{}, false, nil
	}

	session, err := c.restLogin(ctx, info.RestURL, pair.AccessToken)
	if err != nil {
		return core.SessionResult{}, false, err
	}
	return core.SessionResult{
		RestURL:      session.RestURL,
		RestToken:    session.RestToken,
		RefreshToken: pair.RefreshToken,
		AccessToken:  pair.AccessToken,
		Method:       core.MethodRefresh,
	}, true, nil
}

// acquireWithAccessToken logs in with a caller-supplied access token. A
// missing REST URL that cannot be discovered is a caller input defect and
// raises immediately; it deliberately does not fall through to a full
// login.
func (c *Client) acquireWithAccessToken(ctx context.Context, input AcquireInput) (core.SessionResult, error) {
	restURL := strings.TrimSpace(input.Tokens.RestURL)
	if restURL == "" && input.Credentials != nil && strings.TrimSpace(input.Credentials.Username) != "" {
		info, err := c.discover(ctx, input.Credentials.Username)
		if err != nil {
			return core.SessionResult{}, err
		}
		restURL = info.RestURL
	}
	if restURL == "" {
		return core.SessionResult{}, core.NewError(
			"session: access token supplied but no rest url could be resolved; provide tokens.restUrl or credentials.username for discovery",
			goerrors.CategoryBadInput,
			nil,
		)
	}

	session, err := c.restLogin(ctx, restURL, input.Tokens.AccessToken)
	if err != nil {
		return core.SessionResult{}, err
	}
	return core.SessionResult{
		RestURL:      session.RestURL,
		RestToken:    session.RestToken,
		RefreshToken: strings.TrimSpace(input.Tokens.RefreshToken),
		AccessToken:  input.Tokens.AccessToken,
		Method:       core.MethodAccess,
	}, nil
}

// acquireFull runs the complete password-grant flow.
func (c *Client) acquireFull(ctx context.Context, creds core.CredentialSet) (core.SessionResult, error) {
	info, err := c.discover(ctx, creds.Username)
	if err != nil {
		return core.SessionResult{}, err
	}
	code, err := c.authorize(ctx, info.OAuthURL, creds)
	if err != nil {
		return core.SessionResult{}, err
	}
	pair, err := c.codeExchange(ctx, info.OAuthURL, code, creds)
	if err != nil {
		return core.SessionResult{}, err
	}
	session, err := c.restLogin(ctx, info.RestURL, pair.AccessToken)
	if err != nil {
		return core.SessionResult{}, err
	}
	return core.SessionResult{
		RestURL:      session.RestURL,
		RestToken:    session.RestToken,
		RefreshToken: pair.RefreshToken,
		AccessToken:  pair.AccessToken,
		Method:       core.MethodFull,
	}, nil
}

func insufficientInputError() error {
	return core.NewError(
		"session: insufficient input; provide one of: tokens.restUrl+tokens.restToken, "+
			"tokens.refreshToken+credentials(clientId,clientSecret,username), "+
			"tokens.accessToken with tokens.restUrl or credentials.username, "+
			"or a complete credential set",
		goerrors.CategoryBadInput,
		nil,
	).WithTextCode(core.ErrorInsufficientInput).WithCode(http.StatusBadRequest)
}

func (c *Client) logResult(ctx context.Context, startedAt time.Time, result core.SessionResult) {
	fields := map[string]any{
		"method":      string(result.Method),
		"duration_ms": time.Since(startedAt).Milliseconds(),
	}
	if result.MinRemaining != nil {
		fields["min_remaining"] = *result.MinRemaining
	}
	c.logInfo(ctx, "session acquired", fields)
}

func (c *Client) logFailure(ctx context.Context, path string, err error) {
	if c == nil || c.logger == nil || err == nil {
		return
	}
	c.logWithLevel(ctx, "error", "session acquisition failed", map[string]any{
		"path":  path,
		"error": err.Error(),
	})
}

func (c *Client) logInfo(ctx context.Context, message string, fields map[string]any) {
	c.logWithLevel(ctx, "info", message, fields)
}

func (c *Client) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
