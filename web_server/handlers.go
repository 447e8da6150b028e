package web_server

import (
	"github.com/gobuffalo/nulls"
	"github.com/google/uuid"
	"github.com/lefinal/ctf-server/errors"
	"github.com/lefinal/ctf-server/games"
	"github.com/lefinal/ctf-server/push"
	"go.uber.org/zap"
	"net/http"
)

// Match is the match being served.
type Match interface {
	Start() error
	Pause() error
	Resume() error
	Skip() error
	Rewind() error
	End() error
	Reset(hard bool)
	DeclareVictory(teamID uuid.UUID) error
	ReleaseEmergency()
	EmergencyDeclared() bool
	Announce(kind games.AnnouncementKind, payload nulls.String)
	RegisterFlag(teamID uuid.UUID, location games.Coordinates) error
	Merge(settings games.Settings) error
	AddPlayer(name string, teamID uuid.UUID, privileged bool) (games.Player, error)
	RemovePlayer(playerID uuid.UUID) error
	Player(playerID uuid.UUID) (games.Player, error)
	SendMessage(senderID uuid.UUID, content string) (games.ChatMessage, error)
	SendTeamMessage(teamID uuid.UUID, senderID uuid.UUID, content string) (games.ChatMessage, error)
	Messages(start int, count int) games.MessagePage
	TeamMessages(teamID uuid.UUID, start int, count int) (games.MessagePage, error)
	Status() games.Status
}

// PushRegistry holds web push subscriptions.
type PushRegistry interface {
	PublicKey() string
	Subscribe(sub push.Subscription) error
	Unsubscribe(endpoint string)
}

// gameHandlers serves the routes for the Match.
type gameHandlers struct {
	logger *zap.Logger
	match  Match
}

func (h *gameHandlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, success)
}

func (h *gameHandlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, h.match.Status())
}

func (h *gameHandlers) editSettings(w http.ResponseWriter, r *http.Request) {
	var settings games.Settings
	err := readJSON(w, r, &settings)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	err = h.match.Merge(settings)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "merge settings", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, success)
}

// control returns a handler that performs the given match operation.
func (h *gameHandlers) control(operation string, fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		err := fn()
		if err != nil {
			respondErr(h.logger, w, errors.Wrap(err, operation, nil))
			return
		}
		h.logger.Info("match control", zap.String("operation", operation))
		writeJSON(h.logger, w, http.StatusOK, success)
	}
}

type resetRequest struct {
	Hard bool `json:"hard"`
}

func (h *gameHandlers) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	err := readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	h.match.Reset(req.Hard)
	h.logger.Info("match control", zap.String("operation", "reset"), zap.Bool("hard", req.Hard))
	writeJSON(h.logger, w, http.StatusOK, success)
}

type announceRequest struct {
	Type    games.AnnouncementKind `json:"type"`
	Message nulls.String           `json:"message"`
}

func (h *gameHandlers) announce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	err := readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	if req.Type == "" {
		respondErr(h.logger, w, errors.NewBadRequestError(errors.KindUnexpected, "missing announcement type", nil))
		return
	}
	h.match.Announce(req.Type, req.Message)
	writeJSON(h.logger, w, http.StatusOK, success)
}

func (h *gameHandlers) releaseEmergency(w http.ResponseWriter, _ *http.Request) {
	h.match.ReleaseEmergency()
	writeJSON(h.logger, w, http.StatusOK, success)
}

type addPlayerRequest struct {
	Name       string    `json:"name"`
	Team       uuid.UUID `json:"team"`
	Privileged bool      `json:"privileged"`
}

func (h *gameHandlers) addPlayer(w http.ResponseWriter, r *http.Request) {
	var req addPlayerRequest
	err := readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	player, err := h.match.AddPlayer(req.Name, req.Team, req.Privileged)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "add player", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusCreated, player)
}

func (h *gameHandlers) removePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuidFromVar(r, "player")
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	err = h.match.RemovePlayer(playerID)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "remove player", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, success)
}

func (h *gameHandlers) registerFlag(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidFromVar(r, "team")
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	var location games.Coordinates
	err = readJSON(w, r, &location)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	err = h.match.RegisterFlag(teamID, location)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "register flag", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, success)
}

func (h *gameHandlers) declareVictory(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidFromVar(r, "team")
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	err = h.match.DeclareVictory(teamID)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "declare victory", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, success)
}

type messageRequest struct {
	Content string `json:"content"`
}

type messageResponse struct {
	ID int `json:"id"`
}

func (h *gameHandlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	senderID, err := playerIDFromHeader(r)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	var req messageRequest
	err = readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	message, err := h.match.SendMessage(senderID, req.Content)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "send message", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, messageResponse{ID: message.ID})
}

func (h *gameHandlers) messages(w http.ResponseWriter, r *http.Request) {
	start, count, err := pageFromQuery(r)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	writeJSON(h.logger, w, http.StatusOK, h.match.Messages(start, count))
}

func (h *gameHandlers) sendTeamMessage(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidFromVar(r, "team")
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	senderID, err := playerIDFromHeader(r)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	var req messageRequest
	err = readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	message, err := h.match.SendTeamMessage(teamID, senderID, req.Content)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "send team message", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, messageResponse{ID: message.ID})
}

// teamMessages serves the team chat. Only members of the team and privileged
// players may read it.
func (h *gameHandlers) teamMessages(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuidFromVar(r, "team")
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	playerID, err := playerIDFromHeader(r)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	player, err := h.match.Player(playerID)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "player", nil))
		return
	}
	if !player.Privileged && !player.IsOnTeam(teamID) {
		respondErr(h.logger, w, errors.NewBadRequestError(errors.KindNotTeamMember, "not a member of the team",
			errors.Details{"team": teamID, "player": playerID}))
		return
	}
	start, count, err := pageFromQuery(r)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	page, err := h.match.TeamMessages(teamID, start, count)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "team messages", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, page)
}

// pushHandlers serves the routes for web push subscriptions.
type pushHandlers struct {
	logger   *zap.Logger
	registry PushRegistry
}

type pushKeyResponse struct {
	PublicKey string `json:"public_key"`
}

func (h *pushHandlers) key(w http.ResponseWriter, _ *http.Request) {
	writeJSON(h.logger, w, http.StatusOK, pushKeyResponse{PublicKey: h.registry.PublicKey()})
}

func (h *pushHandlers) subscribe(w http.ResponseWriter, r *http.Request) {
	var sub push.Subscription
	err := readJSON(w, r, &sub)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	err = h.registry.Subscribe(sub)
	if err != nil {
		respondErr(h.logger, w, errors.Wrap(err, "subscribe", nil))
		return
	}
	writeJSON(h.logger, w, http.StatusOK, success)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *pushHandlers) unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	err := readJSON(w, r, &req)
	if err != nil {
		respondErr(h.logger, w, err)
		return
	}
	h.registry.Unsubscribe(req.Endpoint)
	writeJSON(h.logger, w, http.StatusOK, success)
}
