package validation

import (
	"fmt"
	"strconv"
	"time"

	"msgvault/internal/constants"
	"msgvault/internal/errors"
)

// ValidateMessageID validates message ID format and length
func ValidateMessageID(messageID string) error {
	if messageID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "message ID cannot be empty")
	}

	if len(messageID) > constants.MaxMessageIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message ID too long (max %d characters)", constants.MaxMessageIDLength))
	}

	// Upstream ids are decimal snowflakes; reject anything else before it
	// reaches a query.
	for _, char := range messageID {
		if char < '0' || char > '9' {
			return errors.New(errors.ErrCodeInvalidInput, "message ID must contain only digits")
		}
	}

	return nil
}

// ParseScopeID parses a required int64 scope parameter (guild_id, channel_id).
func ParseScopeID(name, value string) (int64, error) {
	if value == "" {
		return 0, errors.NewInvalidInputError(name, "parameter is required")
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id < 0 {
		return 0, errors.NewInvalidInputError(name, "must be a non-negative integer")
	}

	return id, nil
}

// ParseTimestamp parses an optional ISO-8601 timestamp query parameter.
// A nil result means the parameter was absent; a malformed value is a
// validation failure surfaced to the caller as 422.
func ParseTimestamp(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts, nil
		}
	}

	return nil, errors.NewValidationError(name, "expected ISO-8601 datetime")
}

// ParseLimit parses the optional page limit, defaulting when absent and
// rejecting values outside the valid range.
func ParseLimit(value string) (int, error) {
	if value == "" {
		return constants.DefaultPageLimit, nil
	}

	limit, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewValidationError("limit", "must be an integer")
	}

	if limit < constants.MinPageLimit || limit > constants.MaxPageLimit {
		return 0, errors.NewValidationError("limit",
			fmt.Sprintf("must be between %d and %d", constants.MinPageLimit, constants.MaxPageLimit))
	}

	return limit, nil
}

// ParseBool parses an optional boolean query parameter, defaulting to false.
func ParseBool(name, value string) (bool, error) {
	if value == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, errors.NewValidationError(name, "must be a boolean")
	}

	return b, nil
}
