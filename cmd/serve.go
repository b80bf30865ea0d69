package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

// maxRequestBytes bounds the discover request body.
const maxRequestBytes = 1 << 16

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for competitor discovery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "serve", true)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env, routerConfig{timeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second, origins: cfg.Server.AllowedOrigins}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// routerConfig holds the settings taken from the server config section.
type routerConfig struct {
	timeout time.Duration
	origins []string
}

// newRouter builds the HTTP API.
func newRouter(env *pipelineEnv, rc routerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if rc.timeout > 0 {
		r.Use(middleware.Timeout(rc.timeout))
	}

	origins := rc.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/api/competitors/discover", discoverHandler(env))
	return r
}

type discoverRequest struct {
	URL string `json:"url"`
}

func discoverHandler(env *pipelineEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req discoverRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil ||
			strings.TrimSpace(req.URL) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid URL provided"})
			return
		}
		rawURL := strings.TrimSpace(req.URL)

		runID := uuid.New().String()
		started := time.Now()

		res, runErr := env.Pipeline.Run(r.Context(), runID, rawURL)
		if env.Recorder != nil {
			env.Recorder.Record(r.Context(), runID, rawURL, env.Pipeline.Variant(), res, runErr, started)
		}
		if runErr != nil {
			status, body := errorResponse(runErr)
			zap.L().Warn("discover request failed",
				zap.String("run_id", runID),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("url", rawURL),
				zap.Int("status", status),
				zap.Error(runErr),
			)
			writeJSON(w, status, body)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
