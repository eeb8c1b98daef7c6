// internal/config/model.go
//
// Typed configuration model for the login service.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `LOGIN_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • Durations accept Go syntax ("10s", "1m30s").
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import "time"

// Authenticator modes.
const (
	ModeRemote   = "remote"
	ModeDatabase = "database"
)

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr   string        `koanf:"listen_addr"   validate:"required,hostname_port"`
	ForceHTTPS   bool          `koanf:"force_https"`
	ReadTimeout  time.Duration `koanf:"read_timeout"  validate:"min=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"min=0"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"  validate:"min=0"`
}

//
// Auth section
//

// Auth selects and tunes the authenticator.
//
// In `remote` mode credentials are posted to Endpoint.  In `database` mode
// they are checked against the user table and verified users are sent to
// SuccessRedirect.
type Auth struct {
	Mode            string        `koanf:"mode"             validate:"required,oneof=remote database"`
	Endpoint        string        `koanf:"endpoint"         validate:"omitempty,url"`
	Timeout         time.Duration `koanf:"timeout"          validate:"min=0"`
	Retries         int           `koanf:"retries"          validate:"min=0,max=10"`
	SuccessRedirect string        `koanf:"success_redirect" validate:"required"`
}

//
// Database section
//

// Database holds the MySQL DSN.  Keep the password out of YAML by setting
// the whole value to a `vault:` reference.
type Database struct {
	DSN string `koanf:"dsn"`
}

//
// Smaller sections
//

// I18n picks the locale used when Accept-Language matches nothing.
type I18n struct {
	DefaultLocale string `koanf:"default_locale" validate:"required,oneof=th en"`
}

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// CSRF holds the token signing key.  Empty draws a random key at boot.
type CSRF struct {
	Key string `koanf:"key" validate:"omitempty,min=32"`
}

// Session holds the cookie signing key and lifetime.
type Session struct {
	Key string        `koanf:"key" validate:"omitempty,min=32"`
	TTL time.Duration `koanf:"ttl" validate:"min=0"`
}

// Vault toggles `vault:` reference resolution.
type Vault struct {
	Enabled bool `koanf:"enabled"`
}

// Log tunes the zap logger.
type Log struct {
	Level   string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Console bool   `koanf:"console"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.
type Paths struct {
	Root string // LOGIN_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load().
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Auth     Auth     `koanf:"auth"`
	Database Database `koanf:"database"`
	I18n     I18n     `koanf:"i18n"`
	GeoIP    GeoIP    `koanf:"geoip"`
	CSRF     CSRF     `koanf:"csrf"`
	Session  Session  `koanf:"session"`
	Vault    Vault    `koanf:"vault"`
	Log      Log      `koanf:"log"`
	Paths    Paths    `koanf:"-"` // not loaded from config files
}
