package config

import (
	"fmt"

	"github.com/goliatone/go-errors"
	validation "github.com/go-ozzo/ozzo-validation"
)

// BaseConfig is the root of the application configuration tree. Values are
// loaded from config files and environment variables by go-config; getters
// fall back to sane defaults so a minimal config file is enough to boot.
type BaseConfig struct {
	App         App         `json:"app"`
	Server      Server      `json:"server"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
	Views       Views       `json:"views"`
	Social      Social      `json:"social"`
}

func (c *BaseConfig) Validate() error {
	if err := c.Auth.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid auth config")
	}
	return nil
}

func (c *BaseConfig) GetApp() App                 { return c.App }
func (c *BaseConfig) GetServer() Server           { return c.Server }
func (c *BaseConfig) GetAuth() Auth               { return c.Auth }
func (c *BaseConfig) GetPersistence() Persistence { return c.Persistence }
func (c *BaseConfig) GetViews() Views             { return c.Views }
func (c *BaseConfig) GetSocial() Social           { return c.Social }

type App struct {
	Name string `json:"name"`
	Env  string `json:"env"`
}

func (a App) GetName() string {
	if a.Name == "" {
		return "hirewire"
	}
	return a.Name
}

func (a App) GetEnv() string {
	if a.Env == "" {
		return "development"
	}
	return a.Env
}

type Server struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (s Server) GetAddress() string {
	port := s.Port
	if port == 0 {
		port = 8572
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}

// Auth satisfies the root package Config interface.
type Auth struct {
	SigningKey            string   `json:"signing_key"`
	SigningMethod         string   `json:"signing_method"`
	ContextKey            string   `json:"context_key"`
	TokenExpiration       int      `json:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration"`
	TokenLookup           string   `json:"token_lookup"`
	AuthScheme            string   `json:"auth_scheme"`
	Issuer                string   `json:"issuer"`
	Audience              []string `json:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key"`
	RejectedRouteDefault  string   `json:"rejected_route_default"`
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
	)
}

func (a Auth) GetSigningKey() string { return a.SigningKey }

func (a Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

func (a Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a Auth) GetExtendedTokenDuration() int {
	if a.ExtendedTokenDuration == 0 {
		return 24 * 30
	}
	return a.ExtendedTokenDuration
}

func (a Auth) GetTokenLookup() string {
	if a.TokenLookup == "" {
		return "cookie:" + a.GetContextKey()
	}
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	if a.AuthScheme == "" {
		return "Bearer"
	}
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "hirewire"
	}
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"hirewire"}
	}
	return a.Audience
}

func (a Auth) GetRejectedRouteKey() string {
	if a.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return a.RejectedRouteKey
}

func (a Auth) GetRejectedRouteDefault() string {
	if a.RejectedRouteDefault == "" {
		return "/dashboard"
	}
	return a.RejectedRouteDefault
}

type Persistence struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:hirewire.db?cache=shared&_pragma=foreign_keys(1)"
	}
	return p.DSN
}

type Views struct {
	DirFS     string `json:"dir_fs"`
	Ext       string `json:"ext"`
	AssetsDir string `json:"assets_dir"`
	Reload    bool   `json:"reload"`
}

func (v Views) GetDirFS() string {
	if v.DirFS == "" {
		return "views"
	}
	return v.DirFS
}

func (v Views) GetExt() string {
	if v.Ext == "" {
		return ".html"
	}
	return v.Ext
}

func (v Views) GetAssetsDir() string {
	if v.AssetsDir == "" {
		return "public"
	}
	return v.AssetsDir
}

func (v Views) GetReload() bool { return v.Reload }

// Social carries OAuth2 provider credentials. A provider with an empty
// client ID is considered disabled.
type Social struct {
	StateSigningKey string         `json:"state_signing_key"`
	BaseURL         string         `json:"base_url"`
	GitHub          SocialProvider `json:"github"`
	Google          SocialProvider `json:"google"`
}

func (s Social) GetStateSigningKey() string {
	if s.StateSigningKey == "" {
		return s.BaseURL + ":state"
	}
	return s.StateSigningKey
}

func (s Social) GetBaseURL() string {
	if s.BaseURL == "" {
		return "http://localhost:8572"
	}
	return s.BaseURL
}

func (s Social) GetGitHub() SocialProvider { return s.GitHub }
func (s Social) GetGoogle() SocialProvider { return s.Google }

type SocialProvider struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

func (p SocialProvider) Enabled() bool { return p.ClientID != "" }

func (p SocialProvider) GetClientID() string     { return p.ClientID }
func (p SocialProvider) GetClientSecret() string { return p.ClientSecret }
func (p SocialProvider) GetScopes() []string     { return p.Scopes }
