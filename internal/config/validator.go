// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Field tags cover single values.  Rules that span sections live in
// `configRules`, registered as a struct-level validation:
//
//   • auth.mode `remote` requires auth.endpoint.
//   • auth.mode `database` requires database.dsn.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = func() *validator.Validate {
	val := validator.New()
	val.RegisterStructValidation(configRules, Config{})
	return val
}()

//
// rules
//

func configRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(Config)
	switch c.Auth.Mode {
	case ModeRemote:
		if c.Auth.Endpoint == "" {
			sl.ReportError(c.Auth.Endpoint, "Auth.Endpoint", "Endpoint", "required_for_remote", "")
		}
	case ModeDatabase:
		if c.Database.DSN == "" {
			sl.ReportError(c.Database.DSN, "Database.DSN", "DSN", "required_for_database", "")
		}
	}
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
