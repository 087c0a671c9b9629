package config

import (
	"time"

	"github.com/authgate/authgate/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool `mapstructure:"dev_mode"` // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	Auth      Auth
	LDAP      LDAP `mapstructure:"ldap"`
	// Roles maps a role to the roles it inherits from.
	Roles map[string][]string
	Redis Redis
	AMQP  AMQP `mapstructure:"amqp"`
	Prune Prune
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain       string // domain name for the webserver
	Port         int    // listening port for the webserver
	ShutDownTime int    `mapstructure:"shutdown_time"` // wait time for shutdown
	URL          string `validate:"omitempty,url"`     // base url for the webserver
	Metrics      bool   // expose /metrics
}

// Auth holds the session and access policy settings.
type Auth struct {
	// Required is the process wide default requirement: "", "null", "false", "true" or a role name.
	Required string
	// URL is the login base URL; the login page is URL + "/login".
	URL string `validate:"omitempty,url"`
	// Expires is the session ttl in seconds. There is no default on purpose.
	Expires int
	// Context names the active RBAC context, if any.
	Context string
	// LoginExpiry is how far User.Expires is pushed forward on login.
	LoginExpiry time.Duration `mapstructure:"login_expiry"`
	// Subject is the token slot used by browser sessions.
	Subject string
	// Secret signs session cookies.
	Secret string
	// CookieName is the session cookie name without the __Host- prefix.
	CookieName string `mapstructure:"cookie_name"`
	// Routes maps a route path prefix to its requirement, overriding Required.
	Routes map[string]string
	// TokenStore selects where tokens live: "db" or "redis".
	TokenStore string `mapstructure:"token_store" validate:"oneof=db redis"`
}

// TTL returns the session ttl.
func (a Auth) TTL() time.Duration {
	return time.Duration(a.Expires) * time.Second
}

// LDAP holds the directory authentication settings.
type LDAP struct {
	Enabled    bool
	Domain     string
	Host       string
	Port       int
	Bind       string
	StartTLS   bool `mapstructure:"start_tls"`
	SkipVerify bool `mapstructure:"skip_verify"`
	Timeout    int  // seconds
}

// Redis holds the redis token store settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
	Prefix   string
}

// AMQP holds the login event publisher settings.
type AMQP struct {
	Enabled  bool
	URL      string
	Exchange string
}

// Prune holds the expired token cleanup settings.
type Prune struct {
	Enabled  bool
	Schedule string
}
