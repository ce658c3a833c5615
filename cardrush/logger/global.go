package logger

import (
	"log/slog"
	"time"
)

// LogClaim logs the outcome of a claim attempt
func LogClaim(userID string, cardID int64, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "claim"),
		slog.String("user_id", userID),
		slog.Int64("card_id", cardID),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Warn("Claim rejected", append(attrs, slog.Any("error", err))...)
	} else {
		slog.Info("Claim succeeded", attrs...)
	}
}

// LogQuery logs database operations
func LogQuery(query string, duration time.Duration, err error) {
	attrs := []any{
		slog.String("type", "db"),
		slog.Duration("took", duration),
	}

	if err != nil {
		slog.Error("Query failed", append(attrs,
			slog.String("query", query),
			slog.Any("error", err),
		)...)
	} else {
		slog.Debug("Query executed", append(attrs,
			slog.String("query", query),
		)...)
	}
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
