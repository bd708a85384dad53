package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID     = "playback_session_id"
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldTrackID       = "track_id"
	FieldEndpoint      = "endpoint"
	FieldCacheKey      = "cache_key"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldReason   = "reason"

	// Network fields
	FieldRetryCount = "retry_count"
	FieldBackoff    = "backoff"
)
