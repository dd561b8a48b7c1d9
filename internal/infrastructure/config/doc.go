// Package config handles loading and validating neosqlite configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (NEOSQLITE_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables
//   - The HTTP browser refuses to start without a JWT secret
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Path)
package config
