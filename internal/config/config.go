package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ringline/internal/dispatch"
	"ringline/internal/speech"
)

// Config models ringline.yml. Provider credentials may also come from the
// environment; see Overlay.
type Config struct {
	Provider struct {
		AccountSID string `yaml:"account_sid" json:"account_sid"`
		AuthToken  string `yaml:"auth_token" json:"auth_token"`
		FromNumber string `yaml:"from_number" json:"from_number"`
	} `yaml:"provider" json:"provider"`
	Voice  speech.Voice `yaml:"voice" json:"voice"`
	Server struct {
		Addr      string `yaml:"addr" json:"addr"`
		BasePath  string `yaml:"base_path" json:"base_path"`
		JWTSecret string `yaml:"jwt_secret" json:"jwt_secret"`
		// DevLogin exposes the token minting route; it needs a jwt_secret.
		DevLogin bool `yaml:"dev_login" json:"dev_login"`
	} `yaml:"server" json:"server"`
	Webhooks []WebhookConfig `yaml:"webhooks" json:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url" json:"url"`
	Events         []string `yaml:"events" json:"events,omitempty"`
	Secret         string   `yaml:"secret" json:"secret,omitempty"`
	Enabled        *bool    `yaml:"enabled" json:"enabled,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
}

const redacted = "********"

// Redacted returns a copy safe to print: tokens and secrets are masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Provider.AuthToken = mask(out.Provider.AuthToken)
	out.Server.JWTSecret = mask(out.Server.JWTSecret)
	out.Webhooks = make([]WebhookConfig, len(c.Webhooks))
	for i, hook := range c.Webhooks {
		hook.Secret = mask(hook.Secret)
		out.Webhooks[i] = hook
	}
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return redacted
}

// Validate checks structure only. Missing provider credentials are not an
// error here: each call request reports them on its own.
func (c *Config) Validate() error {
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	if c.Voice.Name == "" {
		return fmt.Errorf("config.voice.name is required")
	}
	if c.Voice.Language == "" {
		return fmt.Errorf("config.voice.language is required")
	}
	for i, hook := range c.Webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			return fmt.Errorf("webhook %d has empty url", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhook %d has negative timeout", i)
		}
		for _, evt := range hook.Events {
			if !strings.HasPrefix(evt, "call.") {
				return fmt.Errorf("webhook %d subscribes to unknown event %s", i, evt)
			}
		}
	}
	return nil
}

// Credentials returns the provider settings for the dispatcher.
func (c *Config) Credentials() dispatch.Credentials {
	return dispatch.Credentials{
		AccountSID: c.Provider.AccountSID,
		AuthToken:  c.Provider.AuthToken,
		FromNumber: c.Provider.FromNumber,
	}
}

// Overlay replaces values with non-empty entries from lookup. The keys are the
// dotted YAML paths, e.g. "provider.account_sid".
func (c *Config) Overlay(lookup func(key string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Provider.AccountSID, "provider.account_sid")
	set(&c.Provider.AuthToken, "provider.auth_token")
	set(&c.Provider.FromNumber, "provider.from_number")
	set(&c.Voice.Name, "voice.name")
	set(&c.Voice.Language, "voice.language")
	set(&c.Server.Addr, "server.addr")
	set(&c.Server.BasePath, "server.base_path")
	set(&c.Server.JWTSecret, "server.jwt_secret")
	if v := strings.TrimSpace(lookup("server.dev_login")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Server.DevLogin = b
		}
	}
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses config on top of the defaults and validates it.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults when path is empty or does not exist.
func LoadOptional(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := FromFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

const defaultTemplate = `provider:
  account_sid: ""
  auth_token: ""
  from_number: ""

voice:
  name: alice
  language: en-US

server:
  addr: 127.0.0.1:8080
  base_path: /api
  jwt_secret: ""
  dev_login: false

webhooks: []
`
