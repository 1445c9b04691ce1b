// Package config loads postinsights settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// POSTINSIGHTS_* environment variables (after loading any .env files).
// ${VAR} references in the YAML file are expanded before parsing, and the
// result is validated before use.
package config
