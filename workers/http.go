package workers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xrplprover/config"
	"xrplprover/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func NewRouter(h *handlers.Handlers, jwtSecret []byte) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Options("/*", CORSHeaders)

	r.Get("/health", h.HealthCheck)
	r.Get("/state", h.State)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(jwtSecret))

		r.Post("/proof/construct", h.ConstructProof)
		r.Post("/proof/ticket-create", h.TicketCreate)
		r.Get("/proof/{sessionID}", h.GetProof)

		r.Post("/verifier-set/update", h.UpdateVerifierSet)
		r.Get("/verifier-set", h.GetVerifierSet)

		r.Post("/tx-status", h.UpdateTxStatus)
		r.Post("/tokens", h.RegisterToken)

		r.Get("/stats/{status}", h.GetTransactions)
	})

	return r
}

func Worker_HTTP(h *handlers.Handlers) {
	log.Info("Starting HTTP service")

	r := NewRouter(h, []byte(config.Config.Server.JWTSecret))

	var server *http.Server

	if config.Config.Server.UseSSL {
		cert, err := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		if err != nil {
			log.Fatalf("error loading TLS certificate: %s", err)
		}
		server = &http.Server{
			Addr:    ":443",
			Handler: r,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	} else {
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", config.Config.Server.Port),
			Handler: r,
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if config.Config.Server.UseSSL {
			if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				log.Fatalf("error listening to: %s", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("error listening to: %s", err)
			}
		}
	}()
	log.WithField("addr", server.Addr).Info("HTTP service started")

	<-done
	log.Info("HTTP service stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP service shutdown error: %+v", err)
	}
	log.Info("HTTP service shutdown normal")

	// send signal to other threads/workers to exit
	WorkerShutdown.Store(true)
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, X-Requested-With")
}
