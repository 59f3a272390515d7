package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger from the logger section.
// Unknown levels fall back to info.
func NewLogger(c LoggerConfig) *logrus.Logger {
	logger := logrus.New()

	switch strings.ToLower(c.Level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "warn":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if strings.EqualFold(c.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	logger.Debug("[LOGGER] Logger initialized with level: ", logger.GetLevel())
	return logger
}
