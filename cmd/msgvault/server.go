package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"msgvault/internal/constants"
	"msgvault/internal/middleware"
	"msgvault/internal/models"
	"msgvault/internal/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	queries *service.QueryEngine
	cfg     *models.Config
	server  *http.Server
}

func NewServer(cfg *models.Config, queries *service.QueryEngine, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		queries: queries,
		cfg:     cfg,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.ObservabilityMiddleware(s.logger))

	// Health check is the only unauthenticated route
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)

	authed := s.router.PathPrefix("/").Subrouter()
	authed.Use(middleware.APIKeyAuth(s.cfg.APIKey, s.logger))

	authed.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := authed.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/messages", s.handleListMessages()).Methods(http.MethodGet)
	api.HandleFunc("/messages/{message_id}", s.handleGetMessage()).Methods(http.MethodGet)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(constants.DefaultServerReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(constants.DefaultServerWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(constants.DefaultServerIdleTimeoutSec) * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.cfg.Server.Port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
