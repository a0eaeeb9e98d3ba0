package main

import (
	"time"

	"github.com/C0inMan/eclair/internal/logutil"
	"github.com/C0inMan/eclair/router"
	"github.com/btcsuite/btclog"
)

var log btclog.Logger

func setupLogging(level string) {
	backend := logutil.NewBackend()
	logger := backend.Logger("ECLD")

	parsed, err := logutil.ParseLevel(level)
	if err != nil {
		parsed = btclog.LevelInfo
	}
	logger.SetLevel(parsed)

	log = logger
	router.UseLogger(backend.Logger("ROUT"))
}

func durationFromMinutes(minutes int) time.Duration {
	if minutes <= 0 {
		return time.Hour
	}
	return time.Duration(minutes) * time.Minute
}
