package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required for stateless mode")
)

// TemplateHelperFactory lets a template engine wrap each CSRF helper value,
// e.g. to return per-request closures instead of static strings.
type TemplateHelperFactory func(name string, fallback string) any

var (
	templateHelperFactory   TemplateHelperFactory
	templateHelperFactoryMu sync.RWMutex
)

// SetTemplateHelperFactory registers the helper factory. Nil restores the
// default static placeholder strings.
func SetTemplateHelperFactory(factory TemplateHelperFactory) {
	templateHelperFactoryMu.Lock()
	defer templateHelperFactoryMu.Unlock()
	templateHelperFactory = factory
}

func getTemplateHelperFactory() TemplateHelperFactory {
	templateHelperFactoryMu.RLock()
	defer templateHelperFactoryMu.RUnlock()
	return templateHelperFactory
}

const (
	// DefaultTokenLength is the random token size in bytes.
	DefaultTokenLength = 32

	// DefaultTemplateHelpersKey is the locals key helper maps merge into.
	DefaultTemplateHelpersKey = "template_helpers"

	// DefaultContextKey is where the middleware stores the current token.
	DefaultContextKey = "csrf_token"

	// DefaultFormFieldName names the hidden form field carrying the token.
	DefaultFormFieldName = "_token"

	// DefaultHeaderName names the request header carrying the token.
	DefaultHeaderName = "X-CSRF-Token"
)

type Config struct {
	// Skip bypasses the middleware for requests it returns true on.
	Skip func(router.Context) bool

	TokenLength   int
	ContextKey    string
	FormFieldName string
	HeaderName    string

	// TokenLookup lists extraction sources in order, e.g.
	// "form:_token,header:X-CSRF-Token".
	TokenLookup string

	// Storage keeps one token per session. Nil switches to stateless
	// HMAC-signed tokens.
	Storage Storage

	ErrorHandler   router.ErrorHandler
	SuccessHandler router.HandlerFunc

	// SafeMethods pass through without token validation.
	SafeMethods []string

	// Expiration bounds token lifetime.
	Expiration time.Duration

	// SecureKey signs stateless tokens. Required without Storage; a random
	// key is generated when omitted, which invalidates tokens on restart.
	SecureKey []byte

	DisableTemplateHelpers bool
	TemplateHelpersKey     string
}

// Storage keeps issued tokens keyed by session.
type Storage interface {
	Get(key string) (string, error)
	Set(key string, value string, expiration time.Duration) error
	Delete(key string) error
}

// TokenExtractor pulls a candidate token out of a request.
type TokenExtractor func(router.Context) (string, error)

// New builds the CSRF middleware. Every request gets a token in locals for
// templates; unsafe methods must echo it back via form field or header.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := issueToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormFieldName)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)
			if !cfg.DisableTemplateHelpers {
				helpers := CSRFTemplateHelpersWithRouter(ctx, cfg.ContextKey)
				ctx.LocalsMerge(cfg.TemplateHelpersKey, helpers)
			}

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return cfg.SuccessHandler(ctx)
			}

			if err := verifyRequest(ctx, cfg, token); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// issueToken reuses the stored token for the session when storage is
// configured, otherwise mints a stateless one.
func issueToken(ctx router.Context, cfg Config) (string, error) {
	if cfg.Storage == nil {
		return mintStatelessToken(ctx, cfg)
	}

	key := sessionKey(ctx)
	if token, err := cfg.Storage.Get(key); err == nil && token != "" {
		return token, nil
	}

	token, err := randomToken(cfg.TokenLength)
	if err != nil {
		return "", err
	}

	if err := cfg.Storage.Set(key, token, cfg.Expiration); err != nil {
		return "", err
	}

	return token, nil
}

// verifyRequest checks the token echoed back by an unsafe request.
func verifyRequest(ctx router.Context, cfg Config, expectedToken string) error {
	receivedToken, err := requestToken(ctx, cfg)
	if err != nil {
		return err
	}

	if receivedToken == "" {
		return ErrTokenMissing
	}

	if cfg.Storage != nil {
		if expectedToken == "" {
			return ErrTokenMismatch
		}
		if subtle.ConstantTimeCompare([]byte(receivedToken), []byte(expectedToken)) != 1 {
			return ErrTokenMismatch
		}
		return nil
	}

	return verifyStatelessToken(ctx, cfg, receivedToken)
}

func randomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// mintStatelessToken signs timestamp:nonce:session with the secure key so
// no server-side state is needed.
func mintStatelessToken(ctx router.Context, cfg Config) (string, error) {
	if len(cfg.SecureKey) == 0 {
		return "", ErrSecureKeyMissing
	}

	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), sessionKey(ctx))

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	token := fmt.Sprintf("%s:%s", payload, hex.EncodeToString(signature))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func verifyStatelessToken(ctx router.Context, cfg Config, token string) error {
	if len(cfg.SecureKey) == 0 {
		return ErrSecureKeyMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, sessionFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrTokenMismatch
	}

	// tokens are bound to the session they were minted for
	if subtle.ConstantTimeCompare([]byte(sessionFromToken), []byte(sessionKey(ctx))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func requestToken(ctx router.Context, cfg Config) (string, error) {
	for _, extractor := range tokenExtractors(cfg.TokenLookup, cfg.FormFieldName, cfg.HeaderName) {
		token, err := extractor(ctx)
		if token != "" && err == nil {
			return token, nil
		}
	}

	return "", nil
}

// sessionKey derives the storage key: session id, then user id, then the
// client IP as a last resort.
func sessionKey(ctx router.Context) string {
	if sessionID := ctx.Locals("session_id"); sessionID != nil {
		if id, ok := sessionID.(string); ok && id != "" {
			return "csrf_" + id
		}
	}

	if userID := ctx.Locals("user_id"); userID != nil {
		if id, ok := userID.(string); ok && id != "" {
			return "csrf_user_" + id
		}
	}

	return "csrf_ip_" + ctx.IP()
}

func tokenExtractors(tokenLookup, formField, header string) []TokenExtractor {
	if tokenLookup == "" {
		return []TokenExtractor{fromForm(formField), fromHeader(header)}
	}

	var extractors []TokenExtractor
	for _, part := range strings.Split(tokenLookup, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "form:"):
			extractors = append(extractors, fromForm(strings.TrimPrefix(part, "form:")))
		case strings.HasPrefix(part, "header:"):
			extractors = append(extractors, fromHeader(strings.TrimPrefix(part, "header:")))
		}
	}

	return extractors
}

func fromForm(fieldName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.FormValue(fieldName), nil
	}
}

func fromHeader(headerName string) TokenExtractor {
	return func(ctx router.Context) (string, error) {
		return ctx.GetString(headerName, ""), nil
	}
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler(cfg)
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.TemplateHelpersKey == "" {
		cfg.TemplateHelpersKey = DefaultTemplateHelpersKey
	}

	cfg.SecureKey = ensureSecureKey(cfg.SecureKey, cfg.Storage)

	return cfg
}

func defaultErrorHandler(cfg Config) router.ErrorHandler {
	return func(ctx router.Context, err error) error {
		switch err {
		case ErrTokenMissing:
			return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
		case ErrTokenMismatch:
			return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
		case ErrTokenExpired:
			return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
		case ErrSecureKeyMissing:
			return ctx.Status(router.StatusInternalServerError).SendString("CSRF configuration error")
		default:
			return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
		}
	}
}

// ensureSecureKey enforces the 32 byte minimum and generates a key when
// stateless mode starts without one.
func ensureSecureKey(current []byte, storage Storage) []byte {
	if storage != nil {
		return current
	}
	if len(current) > 0 {
		if len(current) < 32 {
			panic(fmt.Errorf("csrf: secure key must be at least 32 bytes, got %d", len(current)))
		}
		return current
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
	}
	return key
}

// CSRFTemplateHelpers returns static helper placeholders for engines set up
// before any request exists.
func CSRFTemplateHelpers() map[string]any {
	base := map[string]string{
		"csrf_token":       "",
		"csrf_field":       `<input type="hidden" name="` + DefaultFormFieldName + `" value="">`,
		"csrf_meta":        `<meta name="csrf-token" content="">`,
		"csrf_header_name": DefaultHeaderName,
	}

	result := make(map[string]any, len(base))
	if factory := getTemplateHelperFactory(); factory != nil {
		for key, value := range base {
			result[key] = factory(key, value)
		}
		return result
	}

	for key, value := range base {
		result[key] = value
	}

	return result
}

// CSRFTemplateHelpersWithRouter builds helper values from the token the
// middleware stored on this request.
func CSRFTemplateHelpersWithRouter(ctx router.Context, tokenKey string) map[string]any {
	if tokenKey == "" {
		tokenKey = DefaultContextKey
	}

	token := ""
	if value := ctx.Locals(tokenKey); value != nil {
		if str, ok := value.(string); ok {
			token = str
		}
	}

	fieldName := DefaultFormFieldName
	if raw := ctx.Locals(tokenKey + "_field"); raw != nil {
		if val, ok := raw.(string); ok && val != "" {
			fieldName = val
		}
	}

	headerName := DefaultHeaderName
	if raw := ctx.Locals(tokenKey + "_header"); raw != nil {
		if val, ok := raw.(string); ok && val != "" {
			headerName = val
		}
	}

	return map[string]any{
		"csrf_token":       token,
		"csrf_field":       `<input type="hidden" name="` + fieldName + `" value="` + token + `">`,
		"csrf_meta":        `<meta name="csrf-token" content="` + token + `">`,
		"csrf_header_name": headerName,
	}
}
