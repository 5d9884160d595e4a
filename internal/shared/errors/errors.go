package errors

import "errors"

var (
	ErrMissingBotToken      = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingTargetChannel = errors.New("TARGET_CHANNEL_ID environment variable is required")
	ErrSourceUnavailable    = errors.New("listing source unavailable")
	ErrPersistenceCorrupt   = errors.New("persisted document is corrupt")
	ErrDeliveryFailed       = errors.New("delivery failed")
	ErrInvalidCommand       = errors.New("invalid command")
)
