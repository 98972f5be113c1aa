// Package config defines the settings shared by robot-server and robot-ctl and
// provides helpers to load, validate and save them.
//
// Files may be YAML (.yaml, .yml) or TOML (.toml); TELEROBOT_* environment
// variables override whatever the file says.
package config
