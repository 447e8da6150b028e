package errors

// Code is the general class of an Error.
type Code string

const (
	ErrAborted       Code = "aborted"
	ErrBadRequest    Code = "bad-request"
	ErrCommunication Code = "communication"
	// ErrStateConflict is used for operations that are not allowed in the current
	// match phase or pause state.
	ErrStateConflict Code = "state-conflict"
	ErrFatal         Code = "fatal"
	ErrNotFound      Code = "not-found"
	ErrInternal      Code = "internal"
	ErrUnexpected    Code = "unexpected"
)

// Kind is the concrete reason for an Error.
type Kind string

const (
	// KindAlreadyPaused is used when a match is paused although already paused.
	KindAlreadyPaused Kind = "already-paused"
	// KindContextAborted is used when we were currently performing an operation
	// but the context got aborted.
	KindContextAborted Kind = "context-aborted"
	KindDecodeJSON     Kind = "parse-request-body-as-json"
	KindEncodeJSON     Kind = "encode-json"
	// KindDuplicateName is used when a team or player name is already taken.
	KindDuplicateName Kind = "duplicate-name"
	// KindEmergencyDeclared is used when match controls are used while an
	// emergency is declared.
	KindEmergencyDeclared Kind = "emergency-declared"
	// KindFlagsNotRegistered is used when the grace period cannot be left because
	// not all teams registered their flag.
	KindFlagsNotRegistered Kind = "flags-not-registered"
	// KindInvalidConfig is used when the app config is invalid.
	KindInvalidConfig Kind = "invalid-config"
	// KindInvalidSettings is used when settings to merge contain invalid values.
	KindInvalidSettings Kind = "invalid-settings"
	// KindInvalidSubscription is used for push subscriptions without endpoint or
	// keys.
	KindInvalidSubscription Kind = "invalid-subscription"
	// KindMalformedID is used when a passed ID is not in uuid.UUID format.
	KindMalformedID Kind = "malformed-id"
	// KindMatchPhaseViolation is used for operations that were performed
	// although not in the expected match phase.
	KindMatchPhaseViolation Kind = "match-phase-violation"
	KindMissingID           Kind = "missing-id"
	// KindNotPaused is used when a match is resumed although not paused.
	KindNotPaused Kind = "not-paused"
	// KindNotTeamMember is used when a player acts on behalf of a team it does
	// not belong to.
	KindNotTeamMember    Kind = "not-team-member"
	KindResourceNotFound Kind = "resource-not-found"
	// KindSettingsLocked is used when settings are changed after the match has
	// started.
	KindSettingsLocked Kind = "settings-locked"
	// KindTeamRegistrationFailed is used when teams from the configuration could
	// not be registered on match creation.
	KindTeamRegistrationFailed Kind = "team-registration-failed"
	KindUnexpected             Kind = "unexpected"
	// KindUnknownPlayer is used when a player id does not belong to a player of
	// the match.
	KindUnknownPlayer Kind = "unknown-player"
	// KindUnknownTeam is used when a team id does not belong to a team of the
	// match.
	KindUnknownTeam Kind = "unknown-team"
)
