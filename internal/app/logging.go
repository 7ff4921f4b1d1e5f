// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger and sets the global level. Unknown
// levels fall back to info.
func NewLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(out).With().Timestamp().Logger()
	if err != nil {
		logger.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return logger
}
