// Package config handles loading and validating pickroute configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with PICKROUTE_* environment variables
//   - Validation of required fields per remote backend
//   - Default value handling
//
// Credentials (MQTT password, Redis password, InfluxDB token) should be
// supplied through the environment rather than the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Robot.Node)
package config
