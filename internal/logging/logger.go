package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Development gets human-readable text,
// every other environment gets JSON.
func NewLogger(logLevel string, environment string) *logrus.Logger {
	return newLogger(os.Stdout, logLevel, environment)
}

func newLogger(out io.Writer, logLevel string, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(ParseLogrusLevel(logLevel))

	if strings.EqualFold(environment, "development") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// ParseLogrusLevel converts string level to logrus.Level
func ParseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithService creates a logger with service context
func WithService(logger *logrus.Logger, serviceName string) *logrus.Entry {
	return logger.WithField("service", serviceName)
}

// LogStartup logs application startup information
func LogStartup(logger *logrus.Logger, serviceName string, version string, port int) {
	logger.WithFields(logrus.Fields{
		"service": serviceName,
		"version": version,
		"port":    port,
		"event":   "startup",
	}).Info("Application startup")
}

// LogShutdown logs application shutdown information
func LogShutdown(logger *logrus.Logger, serviceName string, reason string) {
	logger.WithFields(logrus.Fields{
		"service": serviceName,
		"reason":  reason,
		"event":   "shutdown",
	}).Info("Application shutdown")
}

// LogCacheOperation logs cache operations in a standardized format
func LogCacheOperation(logger *logrus.Logger, operation string, key string, hit bool, duration int64) {
	logger.WithFields(logrus.Fields{
		"operation":   operation,
		"key":         key,
		"hit":         hit,
		"duration_ms": duration,
		"event":       "cache",
	}).Debug("Cache operation")
}

// LogDatabaseOperation logs database operations in a standardized format
func LogDatabaseOperation(logger *logrus.Logger, operation string, table string, duration int64, rowsAffected int64) {
	logger.WithFields(logrus.Fields{
		"operation":     operation,
		"table":         table,
		"duration_ms":   duration,
		"rows_affected": rowsAffected,
		"event":         "database",
	}).Debug("Database operation")
}

// LogAPIRequest logs API requests in a standardized format
func LogAPIRequest(logger *logrus.Logger, requestID string, method string, path string, statusCode int, duration int64, userID string) {
	entry := logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"method":      method,
		"path":        path,
		"status":      statusCode,
		"duration_ms": duration,
		"user_id":     userID,
		"event":       "api",
	})
	switch {
	case statusCode >= 500:
		entry.Error("API request")
	case statusCode >= 400:
		entry.Warn("API request")
	default:
		entry.Info("API request")
	}
}
