// Package logging builds the structured logger every other package logs
// through, wiring zap's production config to the CLI's chosen level and
// to utils.SetLogger so the hard-stop invariant path logs the same way.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/daniel-levin/wild/pkg/utils"
)

// New builds a *zap.SugaredLogger at the given level ("debug", "info",
// "warn", "error"; unrecognized values fall back to "info") and registers
// it with pkg/utils so Fatal/Assert log through it too.
func New(level string) *zap.SugaredLogger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// A broken logging config is itself a hard-stop condition, but
		// utils.SetLogger hasn't run yet, so there is nothing better to
		// report through; fall back to a bare panic.
		panic(err)
	}

	sugared := logger.Sugar()
	utils.SetLogger(sugared)
	return sugared
}
