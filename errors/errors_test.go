package errors

import (
	nativeerrors "errors"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"testing"
)

func TestCast(t *testing.T) {
	brokenConfig := nativeerrors.New("open config.json: no such file")
	tests := []struct {
		name   string
		err    error
		want   Error
		wantOK bool
	}{
		{
			name: "settings locked",
			err: Error{
				Code:    ErrStateConflict,
				Kind:    KindSettingsLocked,
				Message: "merge settings",
				Details: Details{"phase": "scout"},
			},
			want: Error{
				Code:    ErrStateConflict,
				Kind:    KindSettingsLocked,
				Message: "merge settings",
				Details: Details{"phase": "scout"},
			},
			wantOK: true,
		},
		{
			name: "unknown player as pointer",
			err: &Error{
				Code:    ErrNotFound,
				Kind:    KindUnknownPlayer,
				Message: "player by id",
			},
			want: Error{
				Code:    ErrNotFound,
				Kind:    KindUnknownPlayer,
				Message: "player by id",
			},
			wantOK: true,
		},
		{
			name: "wrapped with fmt",
			err: fmt.Errorf("remove player: %w", Error{
				Code: ErrNotFound,
				Kind: KindUnknownPlayer,
			}),
			want: Error{
				Code: ErrNotFound,
				Kind: KindUnknownPlayer,
			},
			wantOK: true,
		},
		{
			name: "nil",
			err:  nil,
			want: Error{
				Code:    ErrUnexpected,
				Kind:    KindUnexpected,
				Message: "unknown operation",
				Details: Details{},
			},
			wantOK: false,
		},
		{
			name: "plain",
			err:  brokenConfig,
			want: Error{
				Code:    ErrUnexpected,
				Kind:    KindUnexpected,
				Err:     brokenConfig,
				Message: "unknown operation",
				Details: Details{},
			},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cast(tt.err)
			assert.Equal(t, tt.wantOK, ok, "should return correct ok")
			assert.Equal(t, tt.want, got, "should return correct error")
		})
	}
}

func TestError_Error(t *testing.T) {
	t.Run("without original error", func(t *testing.T) {
		e := Error{Code: ErrStateConflict, Kind: KindNotPaused, Message: "resume match"}
		assert.Equal(t, "resume match", e.Error())
	})
	t.Run("with original error", func(t *testing.T) {
		e := Error{
			Code:    ErrFatal,
			Kind:    KindTeamRegistrationFailed,
			Err:     nativeerrors.New("duplicate team name: red"),
			Message: "register teams",
		}
		assert.Equal(t, "register teams: duplicate team name: red", e.Error())
	})
}

func TestError_Unwrap(t *testing.T) {
	orig := nativeerrors.New("broker unreachable")
	err := NewInternalErrorFromErr(orig, "publish match state", nil)
	assert.True(t, nativeerrors.Is(err, orig), "should unwrap to original error")
}

func TestFromErr(t *testing.T) {
	err := FromErr("connect to broker", ErrCommunication, nativeerrors.New("connection refused"), Details{"addr": "mqtt://localhost:1883"})
	e, ok := Cast(err)
	require.True(t, ok, "should be rich error")
	assert.Equal(t, ErrCommunication, e.Code)
	assert.Equal(t, "connect to broker: connection refused", e.Error())
	assert.Equal(t, "mqtt://localhost:1883", e.Details["addr"])
}

func TestWrap(t *testing.T) {
	t.Run("rich error keeps code and kind", func(t *testing.T) {
		err := Wrap(NewStateConflictError(KindFlagsNotRegistered, "resume", Details{"team": "red"}), "register flag",
			Details{"team": "blue"})
		e, ok := Cast(err)
		require.True(t, ok, "should be rich error")
		assert.Equal(t, ErrStateConflict, e.Code)
		assert.Equal(t, KindFlagsNotRegistered, e.Kind)
		assert.Equal(t, "register flag: resume", e.Message)
		assert.Equal(t, "blue", e.Details["team"], "should set new detail")
		assert.Equal(t, "red", e.Details["_team"], "should keep previous detail with prefix")
	})
	t.Run("nested wraps", func(t *testing.T) {
		err := NewNotFoundError(KindUnknownTeam, "team by id", nil)
		err = Wrap(err, "send team message", nil)
		err = Wrap(err, "handle team message", Details{"team_id": "abc"})
		assert.Equal(t, "handle team message: send team message: team by id", err.Error())
		assert.True(t, HasKind(err, KindUnknownTeam))
	})
	t.Run("plain error", func(t *testing.T) {
		orig := nativeerrors.New("unexpected EOF")
		err := Wrap(orig, "read settings", nil)
		e, ok := Cast(err)
		require.True(t, ok, "should be rich error after wrapping")
		assert.Equal(t, ErrUnexpected, e.Code)
		assert.Equal(t, "read settings: unexpected EOF", err.Error())
		assert.True(t, nativeerrors.Is(err, orig))
	})
}

func TestHasCodeAndKind(t *testing.T) {
	err := NewBadRequestError(KindDuplicateName, "add player", Details{"name": "alice"})
	assert.True(t, HasCode(err, ErrBadRequest))
	assert.False(t, HasCode(err, ErrNotFound))
	assert.True(t, HasKind(err, KindDuplicateName))
	assert.False(t, HasKind(err, KindUnknownPlayer))
	assert.False(t, HasCode(nativeerrors.New("plain"), ErrUnexpected), "should not match plain errors")
	assert.False(t, HasCode(nil, ErrUnexpected), "should not match nil")
}

func TestGenerators(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantKind Kind
	}{
		{
			name:     "settings locked",
			err:      NewStateConflictError(KindSettingsLocked, "merge settings", nil),
			wantCode: ErrStateConflict,
			wantKind: KindSettingsLocked,
		},
		{
			name:     "unknown player",
			err:      NewNotFoundError(KindUnknownPlayer, "player by id", nil),
			wantCode: ErrNotFound,
			wantKind: KindUnknownPlayer,
		},
		{
			name:     "resource not found",
			err:      NewResourceNotFoundError("route", nil),
			wantCode: ErrNotFound,
			wantKind: KindResourceNotFound,
		},
		{
			name:     "invalid settings",
			err:      NewBadRequestError(KindInvalidSettings, "validate settings", nil),
			wantCode: ErrBadRequest,
			wantKind: KindInvalidSettings,
		},
		{
			name:     "team registration failed",
			err:      NewFatalError(KindTeamRegistrationFailed, nativeerrors.New("duplicate"), "new match", nil),
			wantCode: ErrFatal,
			wantKind: KindTeamRegistrationFailed,
		},
		{
			name:     "internal",
			err:      NewInternalError("broadcast state", nil),
			wantCode: ErrInternal,
			wantKind: KindUnexpected,
		},
		{
			name:     "context aborted",
			err:      NewContextAbortedError("sending push notification"),
			wantCode: ErrAborted,
			wantKind: KindContextAborted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, HasCode(tt.err, tt.wantCode), "should have correct code")
			assert.True(t, HasKind(tt.err, tt.wantKind), "should have correct kind")
		})
	}
	assert.Equal(t, "context aborted while sending push notification",
		NewContextAbortedError("sending push notification").Error())
}

func TestBlameUser(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unknown player", err: NewNotFoundError(KindUnknownPlayer, "player by id", nil), want: true},
		{name: "invalid settings", err: NewBadRequestError(KindInvalidSettings, "merge", nil), want: true},
		{name: "settings locked", err: NewStateConflictError(KindSettingsLocked, "merge", nil), want: true},
		{name: "internal", err: NewInternalError("encode state", nil), want: false},
		{name: "communication", err: FromErr("publish", ErrCommunication, nil, nil), want: false},
		{name: "team registration failed", err: NewFatalError(KindTeamRegistrationFailed, nil, "new match", nil), want: false},
		{name: "plain", err: nativeerrors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BlameUser(tt.err))
		})
	}
}

func TestLog(t *testing.T) {
	t.Run("state conflict as warning", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		Log(zap.New(core), NewStateConflictError(KindSettingsLocked, "merge settings", Details{"phase": "ffa"}))
		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
		fields := entries[0].ContextMap()
		assert.Equal(t, "state-conflict", fields["err_code"])
		assert.Equal(t, "settings-locked", fields["err_kind"])
		assert.Equal(t, "ffa", fields["err_details_v_phase"])
	})
	t.Run("internal as error", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		Log(zap.New(core), NewInternalErrorFromErr(nativeerrors.New("closed pipe"), "write to client", nil))
		entries := logs.All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, "closed pipe", entries[0].ContextMap()["err_orig"])
	})
	t.Run("fatal", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		logger := zap.New(core, zap.WithFatalHook(zapcore.WriteThenPanic))
		assert.Panics(t, func() {
			Log(logger, NewFatalError(KindTeamRegistrationFailed, nil, "new match", nil))
		})
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.FatalLevel, logs.All()[0].Level)
	})
}

func TestPrettify(t *testing.T) {
	out := Prettify(NewNotFoundError(KindUnknownTeam, "team by id", Details{"team_id": "red"}))
	assert.Contains(t, out, "Code: not-found")
	assert.Contains(t, out, "Kind: unknown-team")
	assert.Contains(t, out, `{"team_id":"red"}`)
}
