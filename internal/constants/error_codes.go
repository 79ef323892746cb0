package constants

// Error codes returned in the {ok:false, error:"CODE"} envelope and as
// signaling/presence frame reasons. Grouped to match the surfaces that
// raise them.
const (
	// Input validation (HTTP 400)
	ErrCodeMissingFields     = "MISSING_FIELDS"
	ErrCodeMissingFlatID     = "MISSING_FLAT_ID"
	ErrCodePinMustBe4Digits  = "PIN_MUST_BE_4_DIGITS"
	ErrCodeInvalidPin        = "INVALID_PIN"

	// Flat lifecycle / authorization (HTTP 401 for login, 400 otherwise)
	ErrCodeFlatNotFound        = "FLAT_NOT_FOUND"
	ErrCodeFlatDisabled        = "FLAT_DISABLED"
	ErrCodeNoValidCode         = "NO_VALID_CODE"
	ErrCodeInvalidCode         = "INVALID_CODE"
	ErrCodeBanned              = "BANNED"
	ErrCodeAdminRevokeRequired = "ADMIN_REVOKE_REQUIRED"
	ErrCodePinNotSet           = "PIN_NOT_SET"
	ErrCodePasswordRequired    = "PASSWORD_REQUIRED"
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"

	// Transport auth (HTTP 401 or WS close 1008)
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeAlreadyBroadcasting = "ALREADY_BROADCASTING"

	// Signaling routing (WS frame)
	ErrCodeStationOffline              = "STATION_OFFLINE"
	ErrCodeBroadcasterSignalNotReady   = "BROADCASTER_SIGNAL_NOT_READY"

	// Transport-agnostic shared errors
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeInternal    = "INTERNAL_ERROR"
)
