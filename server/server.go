package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Daskott/rightguard/colors"
	"github.com/Daskott/rightguard/server/auth"
	"github.com/Daskott/rightguard/server/logger"
	"github.com/Daskott/rightguard/shared"
	"github.com/gorilla/mux"
)

const DefaultPort = 3000

var (
	logg   = logger.NewLogger()
	prefix = colors.Prefix("server")
)

type RequestContextKey string

type DecodedJWT struct {
	Claims   *auth.RightGuardClaims
	ErrorMsg string
}

type ResponsePayload struct {
	Errors   []string    `json:"errors"`
	Warnings []string    `json:"warnings,omitempty"`
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
}

// Server exposes the per user sessions over http
type Server struct {
	components *Components
	router     *mux.Router
}

func NewServer(components *Components) *Server {
	s := &Server{components: components}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(rw, r)
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, s.initialContextMiddleware)

	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/.well-known/jwks.json", s.jwks).Methods("GET")

	userRouter := router.PathPrefix("/me").Subrouter()
	userRouter.Use(protectedRouteMiddleware)
	userRouter.HandleFunc("", s.findMe).Methods("GET")
	userRouter.HandleFunc("/subscription", s.updateSubscription).Methods("PUT")

	sessionRouter := router.NewRoute().Subrouter()
	sessionRouter.Use(s.sessionMiddleware)

	sessionRouter.HandleFunc("/contacts", s.listContacts).Methods("GET")
	sessionRouter.HandleFunc("/contacts", s.createContact).Methods("POST")
	sessionRouter.HandleFunc("/contacts/stats", s.contactStats).Methods("GET")
	sessionRouter.HandleFunc("/contacts/test-alert", s.testAlert).Methods("POST")
	sessionRouter.HandleFunc("/contacts/{id}", s.updateContact).Methods("PUT")
	sessionRouter.HandleFunc("/contacts/{id}", s.deleteContact).Methods("DELETE")

	sessionRouter.HandleFunc("/incidents", s.listIncidents).Methods("GET")
	sessionRouter.HandleFunc("/incidents", s.createIncident).Methods("POST")
	sessionRouter.HandleFunc("/incidents/{id}", s.updateIncident).Methods("PUT")
	sessionRouter.HandleFunc("/incidents/{id}", s.deleteIncident).Methods("DELETE")
	sessionRouter.HandleFunc("/incidents/{id}/summary", s.summarizeIncident).Methods("POST")
	sessionRouter.HandleFunc("/incidents/{id}/cancel-alerts", s.cancelAlerts).Methods("POST")

	sessionRouter.HandleFunc("/alerts/history", s.alertHistory).Methods("GET")

	return router
}

// Start runs the server until it receives SIGINT or SIGTERM
func Start(config shared.Config, devMode bool) {
	logg = logger.New(config.Logging)

	rootDir := config.RightGuard.DataDir
	if rootDir == "" {
		rootDir = ConfigDirectory(devMode)
	}

	ctx := context.Background()
	components, err := NewComponents(ctx, config, rootDir, logg)
	fatalOnError(err)

	fatalOnError(registerJobHandlers(components))
	restoreCache(ctx, components)

	fatalOnError(components.Workers.Start())
	fatalOnError(enqueueJobs(components))

	port := config.RightGuard.Listener.Port
	if port == 0 {
		port = DefaultPort
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", port),
		Handler:           NewServer(components),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go serve(httpServer)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	cleanup(components, httpServer)
}
