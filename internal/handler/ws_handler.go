/*
Package handler provides the HTTP handlers and routing setup for the SkillBridge chat service.

This file contains the WebSocket entry points. Each handler rate-limits by IP, upgrades
the HTTP connection, and hands the socket to the chat hub, which runs the session state
machine (authentication, room authorization, join, receive loop). Rejections after the
upgrade are signalled with application close codes so clients can interpret them.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"sbchat/internal/app/room"
	"sbchat/internal/pkg/errs"
	"sbchat/internal/pkg/limiter"
	"sbchat/internal/pkg/logx"
	"sbchat/internal/pkg/resp"
)

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}

// handleUpgrade performs the shared pre-upgrade checks and the upgrade itself.
// Returns nil if the request was already answered.
func handleUpgrade(w http.ResponseWriter, r *http.Request, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) *websocket.Conn {
	ip := clientIP(r)

	if !rateLimiter.GetLimiter(ip).Allow() {
		logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
		resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
		return nil
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.Error(err, "Failed to upgrade connection to WebSocket")
		return nil
	}

	return conn
}

// HandleCommunityWS serves `/ws/community/{communityID}` connections.
func HandleCommunityWS(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		communityID := chi.URLParam(r, "communityID")
		if communityID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		conn := handleUpgrade(w, r, upgrader, rateLimiter)
		if conn == nil {
			return
		}

		token := r.URL.Query().Get("token")
		deps.Hub.ServeRoom(conn, token, room.KindCommunity, communityID)
	}
}

// HandlePrivateWS serves `/ws/chat/{roomID}` connections.
func HandlePrivateWS(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		conn := handleUpgrade(w, r, upgrader, rateLimiter)
		if conn == nil {
			return
		}

		token := r.URL.Query().Get("token")
		deps.Hub.ServeRoom(conn, token, room.KindPrivate, roomID)
	}
}

// HandleNotificationsWS serves `/ws/notifications` connections: the per-user
// channel for asynchronous alerts, independent of any chat room.
func HandleNotificationsWS(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn := handleUpgrade(w, r, upgrader, rateLimiter)
		if conn == nil {
			return
		}

		token := r.URL.Query().Get("token")
		deps.Hub.ServeNotifications(conn, token)
	}
}
