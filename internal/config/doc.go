// Package config provides centralized configuration management for the
// splitter service and CLI.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority, .env files included)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SPLIT_<SECTION>_<FIELD>:
//
//	SPLIT_SERVER_PORT=8080
//	SPLIT_SERVER_MAX_UPLOAD_BYTES=33554432
//	SPLIT_LOGGING_LEVEL=debug
//	SPLIT_SPLITTER_ARCHIVE_PREFIX=orders
//	SPLIT_TELEMETRY_TRACING_ENABLED=true
//
// SPLIT_CONFIG_FILE points at an explicit YAML file; otherwise config.yaml
// is looked up in the working directory, configs/ and next to the binary.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests can use config.Default() or config.LoadFrom with a temporary file.
package config
