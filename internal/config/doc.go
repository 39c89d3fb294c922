// Package config loads afl-stats settings from a TOML file.
//
// Values are layered: built-in defaults, then the config file, then
// environment variables (optionally read from a .env file). Paths accept a
// leading "~". The default location is ~/.config/afl-stats/config.toml.
package config
