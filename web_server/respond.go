package web_server

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/event"
	"go.uber.org/zap"
	"net/http"
	"strconv"
)

// maxBodySize is the maximum size of request bodies.
const maxBodySize = 1 << 20

// successResponse is returned for operations without result.
type successResponse struct {
	Message string `json:"message"`
}

var success = successResponse{Message: "success"}

// readJSON decodes the request body into dst.
func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(dst)
	if err != nil {
		return errors.Error{
			Code:    errors.ErrBadRequest,
			Kind:    errors.KindDecodeJSON,
			Err:     err,
			Message: "decode request body",
		}
	}
	return nil
}

// writeJSON responds with the given status and payload encoded as JSON.
func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		errors.Log(logger, errors.Error{
			Code:    errors.ErrInternal,
			Kind:    errors.KindEncodeJSON,
			Err:     err,
			Message: "marshal response",
		})
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(raw)
	if err != nil {
		logger.Debug("write response failed", zap.Error(err))
	}
}

// statusForErr maps the given error to an HTTP status code.
func statusForErr(err error) int {
	e, _ := errors.Cast(err)
	switch e.Code {
	case errors.ErrStateConflict:
		if e.Kind == errors.KindSettingsLocked || e.Kind == errors.KindEmergencyDeclared {
			return http.StatusLocked
		}
		return http.StatusConflict
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrBadRequest:
		if e.Kind == errors.KindNotTeamMember {
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondErr logs the given error and responds with the matching status code.
// Details are only included if the user is to blame.
func respondErr(logger *zap.Logger, w http.ResponseWriter, err error) {
	errors.Log(logger, err)
	writeJSON(logger, w, statusForErr(err), event.ErrorEventPayloadFromError(err))
}

// uuidFromVar parses the route variable with the given name as uuid.UUID.
func uuidFromVar(r *http.Request, name string) (uuid.UUID, error) {
	raw, ok := mux.Vars(r)[name]
	if !ok || raw == "" {
		return uuid.UUID{}, errors.NewBadRequestError(errors.KindMissingID, "missing id", errors.Details{"var": name})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.NewBadRequestError(errors.KindMalformedID, "malformed id",
			errors.Details{"var": name, "was": raw})
	}
	return id, nil
}

// playerIDHeader is the header that holds the id of the requesting player.
const playerIDHeader = "X-Player-ID"

// playerIDFromHeader parses the id of the requesting player from
// playerIDHeader.
func playerIDFromHeader(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get(playerIDHeader)
	if raw == "" {
		return uuid.UUID{}, errors.NewBadRequestError(errors.KindMissingID, "missing player id",
			errors.Details{"header": playerIDHeader})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.NewBadRequestError(errors.KindMalformedID, "malformed player id",
			errors.Details{"header": playerIDHeader, "was": raw})
	}
	return id, nil
}

// Defaults for message pagination.
const (
	defaultPageStart = 0
	defaultPageCount = 10
)

// pageFromQuery parses start and count from the query.
func pageFromQuery(r *http.Request) (int, int, error) {
	start, err := intFromQuery(r, "start", defaultPageStart)
	if err != nil {
		return 0, 0, err
	}
	count, err := intFromQuery(r, "count", defaultPageCount)
	if err != nil {
		return 0, 0, err
	}
	return start, count, nil
}

// intFromQuery parses the query parameter with the given name. If not set, the
// fallback is returned.
func intFromQuery(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewBadRequestError(errors.KindUnexpected, "query parameter must be an integer",
			errors.Details{"param": name, "was": raw})
	}
	return v, nil
}
