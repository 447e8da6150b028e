package web_server

import (
	"context"
	nativeerrors "errors"
	"github.com/gorilla/mux"
	"github.com/lefinal/ctf-server/errors"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"net/http"
	"time"
)

const (
	// DefaultServeAddr is the default address to serve on.
	DefaultServeAddr = ":8080"
	// DefaultWriteTimeout is the default timeout for writing.
	DefaultWriteTimeout = 15 * time.Second
	// DefaultReadTimeout is the default timeout for reading.
	DefaultReadTimeout = 15 * time.Second
	// shutdownTimeout is the timeout for graceful shutdown.
	shutdownTimeout = 15 * time.Second
)

type WebServer struct {
	logger     *zap.Logger
	config     Config
	httpServer *http.Server
	router     *mux.Router
}

// Config is the configuration that is used in order to create and run a web
// server.
type Config struct {
	// Address for the web server to listen to.
	ServeAddr string
	// WriteTimeout is the duration to wait until write fails with a timeout.
	WriteTimeout time.Duration
	// ReadTimeout is the duration to wait until read fails with a timeout.
	ReadTimeout time.Duration
	// AllowedOrigins for CORS. If empty, all origins are allowed.
	AllowedOrigins []string
}

// NewWebServer creates a new WebServer and sets up initial stuff. It expects
// the passed Config to be filled correctly. If you need default values, these
// are exported as DefaultServeAddr, DefaultWriteTimeout and DefaultReadTimeout.
// Run it with WebServer.Run and do not forget to call WebServer.PopulateRoutes
// before.
func NewWebServer(logger *zap.Logger, config Config) (*WebServer, error) {
	if config.ServeAddr == "" {
		return nil, errors.NewBadRequestError(errors.KindInvalidConfig, "no addr provided in config", nil)
	}
	server := &WebServer{
		logger: logger,
		config: config,
		router: mux.NewRouter(),
	}
	// Enable logging.
	server.router.Use(server.loggingMiddleware)
	// Disable caching.
	server.router.Use(noCacheMiddleware)
	// Setup not found handler.
	server.router.NotFoundHandler = noCacheMiddleware(server.loggingMiddleware(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			respondErr(server.logger, w, errors.NewResourceNotFoundError("unknown route", errors.Details{"path": r.URL.Path}))
		})))
	server.httpServer = &http.Server{
		Handler:      server.Handler(),
		Addr:         config.ServeAddr,
		WriteTimeout: config.WriteTimeout,
		ReadTimeout:  config.ReadTimeout,
	}
	return server, nil
}

// Handler returns the http.Handler with CORS enabled.
func (server *WebServer) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: server.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", playerIDHeader},
	}).Handler(server.router)
}

// Run the web server until the given context.Context is done.
func (server *WebServer) Run(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		server.logger.Info("web server running", zap.String("addr", server.config.ServeAddr))
		err := server.httpServer.ListenAndServe()
		if err != nil && !nativeerrors.Is(err, http.ErrServerClosed) {
			listenErr <- errors.NewInternalErrorFromErr(err, "listen and serve", errors.Details{"addr": server.config.ServeAddr})
		}
		close(listenErr)
	}()
	// Wait for stop command.
	select {
	case <-ctx.Done():
	case err := <-listenErr:
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		return errors.NewInternalErrorFromErr(err, "shutdown web server", nil)
	}
	return nil
}
