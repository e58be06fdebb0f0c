// Package config loads and validates Atlas's process configuration from
// the environment (§6.6), generalized from cmd/atlas-server's flag/env
// style. Load fails fast: every required variable is checked once, at
// startup, rather than lazily at first use — a CURSOR_SECRET shorter
// than 32 bytes must never reach a running ServiceContext.
package config
