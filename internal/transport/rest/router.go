package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/rsharma-dev/order-settlement/internal/auth"
	"github.com/rsharma-dev/order-settlement/internal/settlement"
	"github.com/rsharma-dev/order-settlement/internal/transport/middleware"
	"github.com/rsharma-dev/order-settlement/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, allowedOrigins string, authHandler *auth.Handler, settlementHandler *settlement.Handler, webhookHandler *settlement.WebhookHandler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORSWithOrigins(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// The gateway callback authenticates via signature, not bearer token
		if webhookHandler != nil {
			r.Post("/settlement/callback", webhookHandler.HandleGatewayCallback)
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.Refresh)
			})
		}

		if authHandler != nil && settlementHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				pr.Route("/settlement", func(sr chi.Router) {
					sr.Get("/key", settlementHandler.GetGatewayKey)

					sr.Post("/orders", settlementHandler.CreateOrder)
					sr.Post("/orders/follow-up", settlementHandler.CreateFollowUpOrder)
					sr.Get("/orders/{orderID}/payments", settlementHandler.ListOrderPayments)

					sr.Post("/verify", settlementHandler.VerifyPayment)
					sr.Post("/verify/follow-up", settlementHandler.VerifyFollowUpPayment)

					sr.Post("/cash", settlementHandler.RecordCashPayment)
					sr.Post("/cash/follow-up", settlementHandler.RecordFollowUpCashPayment)

					sr.Get("/payments/{paymentID}", settlementHandler.GetPayment)
					sr.Get("/payments/{paymentID}/receipt", settlementHandler.GetReceipt)
					sr.Post("/payments/{paymentID}/refund", settlementHandler.InitiateRefund)
				})
			})
		}
	})
}
