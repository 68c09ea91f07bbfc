// Package config loads and validates pipeline configuration from YAML.
//
// Configuration files support ${VAR} environment-variable expansion,
// letting credentials (warehouse password, SMTP password) live outside
// the file. Missing optional fields receive defaults; Validate rejects
// configurations that could not produce a correct run.
package config
