package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/marcochiesi/editorial-access-manager/internal/routing"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
)

const (
	PolicyEngineNative = "native"
	PolicyEngineRego   = "rego"
)

type Config struct {
	HTTPAddr    string `env:"EAM_HTTP_ADDR"    envDefault:":8080"`
	DatabaseURL string `env:"EAM_DATABASE_URL"`

	AuthzModelPath           string `env:"EAM_AUTHZ_MODEL_PATH"`
	AuthzPolicyPath          string `env:"EAM_AUTHZ_POLICY_PATH"`
	AuthzMode                string `env:"EAM_AUTHZ_MODE"                  envDefault:"enforce"`
	AuthzUnsafeAllowDisabled bool   `env:"EAM_AUTHZ_UNSAFE_ALLOW_DISABLED"`

	CapabilitiesPath string `env:"EAM_CAPABILITIES_PATH"`
	AllowlistPath    string `env:"EAM_ALLOWLIST_PATH"`
	PolicyEngine     string `env:"EAM_POLICY_ENGINE" envDefault:"native"`

	NonceKey      string        `env:"EAM_NONCE_KEY"`
	NonceLifetime time.Duration `env:"EAM_NONCE_LIFETIME" envDefault:"24h"`

	LogLevel    string `env:"EAM_LOG_LEVEL"    envDefault:"info"`
	ActorHeader string `env:"EAM_ACTOR_HEADER" envDefault:"X-EAM-User-ID"`
}

// LoadConfig reads Config from the environment and fills unset file paths
// with the repo defaults.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("server: parse env: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolve() error {
	c.PolicyEngine = strings.ToLower(strings.TrimSpace(c.PolicyEngine))
	switch c.PolicyEngine {
	case "":
		c.PolicyEngine = PolicyEngineNative
	case PolicyEngineNative, PolicyEngineRego:
	default:
		return fmt.Errorf("server: invalid EAM_POLICY_ENGINE %q", c.PolicyEngine)
	}
	if strings.TrimSpace(c.ActorHeader) == "" {
		return errors.New("server: EAM_ACTOR_HEADER is empty")
	}

	var err error
	if c.AuthzModelPath == "" {
		if c.AuthzModelPath, err = defaultPath("config/access/model.conf"); err != nil {
			return err
		}
	}
	if c.AuthzPolicyPath == "" {
		if c.AuthzPolicyPath, err = defaultPath("config/access/policy.csv"); err != nil {
			return err
		}
	}
	if c.CapabilitiesPath == "" {
		if c.CapabilitiesPath, err = capability.DefaultRulesPath(); err != nil {
			return err
		}
	}
	if c.AllowlistPath == "" {
		if c.AllowlistPath, err = routing.DefaultPath(); err != nil {
			return err
		}
	}
	return nil
}

func defaultPath(path string) (string, error) {
	rel := path
	for range 8 {
		if _, err := os.Stat(rel); err == nil {
			return rel, nil
		}
		rel = filepath.Join("..", rel)
	}
	return "", fmt.Errorf("server: %s not found", path)
}
