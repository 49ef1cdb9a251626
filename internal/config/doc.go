// Package config loads, normalizes, and validates talkvid configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the TALKVID_CACHE_DIR environment
// override. The Config type centralizes the cache location, external tool
// names, render defaults and sync parameters so every command resolves them in
// one pass.
package config
