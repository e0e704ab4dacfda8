package logger

import "log/slog"

// Component-specific logger functions

// DB returns a logger for connection and pool operations
func DB() *slog.Logger {
	return WithField("component", "db")
}

// SQL returns a logger for statement execution
func SQL() *slog.Logger {
	return WithField("component", "sql")
}

// Tx returns a logger for transaction scopes
func Tx() *slog.Logger {
	return WithField("component", "tx")
}

// Model returns a logger for an entity model
func Model(table string) *slog.Logger {
	return WithFields(map[string]any{"component": "model", "table": table})
}

// CLI returns a logger for CLI operations
func CLI() *slog.Logger {
	return WithField("component", "cli")
}
