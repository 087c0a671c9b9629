// Package config handles input from etc/main.toml, the environment and .env files.
package config

import (
	"bytes"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. AUTHGATE_AUTH_EXPIRES.
	EnvPrefix = "AUTHGATE"

	// EnvConfigJSON holds a JSON document merged over the file configuration.
	EnvConfigJSON = "AUTHGATE_CONFIG_JSON"

	redacted = "********"
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	// a missing .env is fine
	_ = godotenv.Load(filepath.Join(path, ".env"))

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if configAsJSON := os.Getenv(EnvConfigJSON); configAsJSON != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(configAsJSON)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge "+EnvConfigJSON)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, validate(&c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "authgate")
	v.SetDefault("db.gorm_engine", "sqlite")
	v.SetDefault("db.path", "authgate.db")
	v.SetDefault("webserver.port", 8080) //nolint:mnd
	v.SetDefault("webserver.shutdown_time", 5) //nolint:mnd
	v.SetDefault("auth.login_expiry", "24h")
	v.SetDefault("auth.subject", "web")
	v.SetDefault("auth.cookie_name", "authgate")
	v.SetDefault("auth.token_store", "db")
	v.SetDefault("ldap.bind", "%s")
	v.SetDefault("ldap.timeout", 10) //nolint:mnd
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "authgate")
	v.SetDefault("amqp.exchange", "authgate.events")
	v.SetDefault("prune.schedule", "@hourly")
	v.SetDefault("log.loglevel", "info")
	v.SetDefault("log.appname", "authgate")
	v.SetDefault("log.servicename", "authgate")
	v.SetDefault("roles", map[string][]string{
		"user":  {},
		"admin": {"user"},
		"super": {"admin"},
	})
}

// DumpConfigJSON config as JSON String. Secrets are redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer

	out := *c
	if out.Auth.Secret != "" {
		out.Auth.Secret = redacted
	}

	if out.DB.Password != "" {
		out.DB.Password = redacted
	}

	if out.Redis.Password != "" {
		out.Redis.Password = redacted
	}

	if u, err := url.Parse(out.AMQP.URL); err == nil && out.AMQP.URL != "" {
		out.AMQP.URL = u.Redacted()
	}

	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(out); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate config settings needed to serve requests.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if c.Auth.Expires <= 0 {
		return errors.Wrap(ErrAuthExpiresNotSet, invalidErrMessage)
	}

	if len(c.Auth.Secret) < 32 { //nolint:mnd
		return errors.Wrap(ErrAuthSecretTooShort, invalidErrMessage)
	}

	if c.LDAP.Enabled {
		if c.LDAP.Domain == "" || validator.New().Var(c.LDAP.Domain, "hostname_rfc1123") != nil {
			return errors.Wrap(ErrLDAPDomainNotSet, invalidErrMessage)
		}

		if c.LDAP.Host == "" {
			return errors.Wrap(ErrLDAPHostNotSet, invalidErrMessage)
		}
	}

	for role, parents := range c.Roles {
		for _, parent := range parents {
			if _, ok := c.Roles[parent]; !ok {
				return errors.Wrapf(ErrUnknownRole, "%s: role %q inherits %q", invalidErrMessage, role, parent)
			}
		}
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	return nil
}
