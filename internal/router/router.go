package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/riverzaw/wasmer-cloud-solution/internal/handler"
)

func SetupRoutes(
	appHandler *handler.AppHandler,
	userHandler *handler.UserHandler,
	webhookHandler *handler.WebhookHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Signature"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Provider delivery notifications
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/mailersend", webhookHandler.HandleMailerSend)
		r.Post("/smtp2go", webhookHandler.HandleSMTP2GO)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/apps/{appID}", func(r chi.Router) {
			r.Post("/provider", appHandler.SetProvider)
			r.Post("/provision", appHandler.Provision)
			r.Get("/sending-configuration", appHandler.SendingConfiguration)
			r.Get("/smtp-credentials", appHandler.SMTPCredentials)
			r.Post("/send", appHandler.SendEmail)
			r.Get("/usage", appHandler.AppUsage)
		})

		r.Route("/emails/{entryID}", func(r chi.Router) {
			r.Get("/", appHandler.EmailStatus)
		})

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", userHandler.GetUser)
			r.Post("/upgrade", userHandler.Upgrade)
			r.Post("/downgrade", userHandler.Downgrade)
			r.Get("/usage", appHandler.UserUsage)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
