package handler

import (
	"net/http"

	"sbchat/internal/pkg/errs"
	"sbchat/internal/pkg/logx"
	"sbchat/internal/pkg/resp"
)

const defaultNotificationLimit = 100

// HandleListNotifications returns the caller's notifications, newest first.
func HandleListNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		notifications, err := deps.Notifications.ListForUser(r.Context(), identity.UserID, defaultNotificationLimit)
		if err != nil {
			logx.Error(err, "Failed to list notifications", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, notifications)
	}
}

// HandleMarkNotificationsRead marks all of the caller's notifications as read.
func HandleMarkNotificationsRead(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		if err := deps.Notifications.MarkAllRead(r.Context(), identity.UserID); err != nil {
			logx.Error(err, "Failed to mark notifications read", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleDeleteReadNotifications removes the caller's read notifications.
func HandleDeleteReadNotifications(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		if err := deps.Notifications.DeleteRead(r.Context(), identity.UserID); err != nil {
			logx.Error(err, "Failed to delete read notifications", "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
