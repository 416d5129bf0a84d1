// Package config loads and validates recorder configuration.
//
// Configuration is YAML with ${VAR} environment expansion, so secrets can
// live in the environment while structure lives in the file. Defaults are
// applied for everything except database identity and credentials.
package config
