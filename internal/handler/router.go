/*
Package handler provides the HTTP handlers and routing setup for the SkillBridge chat service.

This file defines the main Router, applying necessary middleware like logging, CORS,
and IP-based rate limiting before delegating requests to specific handlers (API and WebSocket).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"sbchat/internal/pkg/auth/jwt"
	"sbchat/internal/pkg/limiter"
	"sbchat/internal/pkg/logx"
	"sbchat/internal/pkg/resp"
)

const (
	CreateRate  = 0.05
	CreateBurst = 2
	JoinRate    = 0.2
	JoinBurst   = 5
)

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It initializes IP-based rate limiters, configures CORS, and applies global and
// per-route middleware before mounting the REST API and the WebSocket endpoints.
func Router(deps *AppDeps) http.Handler {
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.Environment == "development" {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.Environment == "development" {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Info("Health check endpoint hit")

		data := map[string]string{
			"status":  "ok",
			"service": "SkillBridge Chat Service",
		}
		resp.RespondSuccess(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

		api.Route("/communities", func(communities chi.Router) {
			rateLimitedCreate := createLimiter.Middleware(HandleCreateCommunity(deps))
			communities.Post("/", http.HandlerFunc(rateLimitedCreate.ServeHTTP))

			communities.Post("/{communityID}/join", HandleJoinCommunity(deps))
			communities.Post("/{communityID}/leave", HandleLeaveCommunity(deps))
			communities.Get("/{communityID}/members", HandleListCommunityMembers(deps))
			communities.Get("/{communityID}/messages", HandleListCommunityMessages(deps))
			communities.Post("/{communityID}/messages", HandleSendCommunityMessage(deps))
		})

		api.Route("/chat", func(chat chi.Router) {
			chat.Post("/rooms", HandleCreateChatRoom(deps))
			chat.Get("/rooms/{roomID}/messages", HandleListChatMessages(deps))
		})

		api.Route("/notifications", func(notifications chi.Router) {
			notifications.Get("/", HandleListNotifications(deps))
			notifications.Post("/read", HandleMarkNotificationsRead(deps))
			notifications.Delete("/read", HandleDeleteReadNotifications(deps))
		})

		api.Route("/events", func(events chi.Router) {
			events.Post("/purchase-completed", HandlePurchaseCompleted(deps))
			events.Post("/trade-requested", HandleTradeRequested(deps))
			events.Post("/trade-accepted", HandleTradeAccepted(deps))
		})
	})

	r.Get("/ws/community/{communityID}", HandleCommunityWS(wsUpgrader, joinLimiter, deps))
	r.Get("/ws/chat/{roomID}", HandlePrivateWS(wsUpgrader, joinLimiter, deps))
	r.Get("/ws/notifications", HandleNotificationsWS(wsUpgrader, joinLimiter, deps))

	return r
}
