package web_server

import (
	"context"
	"github.com/lefinal/ctf-server/ws"
	"net/http"
)

// RouteDeps are the dependencies for PopulateRoutes.
type RouteDeps struct {
	Match Match
	Hub   *ws.Hub
	Push  PushRegistry
}

// PopulateRoutes populates the WebServer with the routes.
func (server *WebServer) PopulateRoutes(ctx context.Context, deps RouteDeps) {
	// Websocket stuff.
	server.router.HandleFunc("/ws", ws.HandleWS(ctx, server.logger.Named("ws"), deps.Hub))
	// Game stuff.
	game := &gameHandlers{
		logger: server.logger.Named("game"),
		match:  deps.Match,
	}
	gameRouter := server.router.PathPrefix("/game").Subrouter()
	gameRouter.HandleFunc("/health", game.health).Methods(http.MethodGet)
	gameRouter.HandleFunc("/status", game.status).Methods(http.MethodGet)
	gameRouter.HandleFunc("/settings", game.editSettings).Methods(http.MethodPatch)
	gameRouter.HandleFunc("/announce", game.announce).Methods(http.MethodPost)
	gameRouter.HandleFunc("/emergency/release", game.releaseEmergency).Methods(http.MethodPost)
	gameRouter.HandleFunc("/players", game.addPlayer).Methods(http.MethodPost)
	gameRouter.HandleFunc("/players/{player}", game.removePlayer).Methods(http.MethodDelete)
	gameRouter.HandleFunc("/teams/{team}/flag", game.registerFlag).Methods(http.MethodPost)
	gameRouter.HandleFunc("/teams/{team}/victory", game.declareVictory).Methods(http.MethodPost)
	gameRouter.HandleFunc("/message/global", game.sendMessage).Methods(http.MethodPost)
	gameRouter.HandleFunc("/message/global", game.messages).Methods(http.MethodGet)
	gameRouter.HandleFunc("/message/team/{team}", game.sendTeamMessage).Methods(http.MethodPost)
	gameRouter.HandleFunc("/message/team/{team}", game.teamMessages).Methods(http.MethodGet)
	// Controls are locked during emergencies.
	controlRouter := gameRouter.PathPrefix("/control").Subrouter()
	controlRouter.Use(emergencyLockMiddleware(game.logger, deps.Match))
	controlRouter.HandleFunc("/start", game.control("start", deps.Match.Start)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/pause", game.control("pause", deps.Match.Pause)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/resume", game.control("resume", deps.Match.Resume)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/skip", game.control("skip", deps.Match.Skip)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/rewind", game.control("rewind", deps.Match.Rewind)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/end", game.control("end", deps.Match.End)).Methods(http.MethodPost)
	controlRouter.HandleFunc("/reset", game.reset).Methods(http.MethodPost)
	// Push stuff.
	pushes := &pushHandlers{
		logger:   server.logger.Named("push"),
		registry: deps.Push,
	}
	apiRouter := server.router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/push/key", pushes.key).Methods(http.MethodGet)
	apiRouter.HandleFunc("/push/subscribe", pushes.subscribe).Methods(http.MethodPost)
	apiRouter.HandleFunc("/push/unsubscribe", pushes.unsubscribe).Methods(http.MethodPost)
}
