// Package config loads the service's settings from environment
// variables (ARGUS_ prefix) and an optional config file, applies
// defaults, and validates the result before anything else starts.
package config
