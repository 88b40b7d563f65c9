package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sbchat/internal/app/message"
	"sbchat/internal/app/room"
	"sbchat/internal/pkg/errs"
	"sbchat/internal/pkg/logx"
	"sbchat/internal/pkg/req"
	"sbchat/internal/pkg/resp"
)

const defaultHistoryLimit = 50

type SendMessageInput struct {
	Message string `json:"message"`
}

// HandleSendCommunityMessage persists and relays a community message on behalf
// of the caller. Delivery follows the same path as messages sent over the
// socket, so connected members receive it immediately.
func HandleSendCommunityMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		communityID := chi.URLParam(r, "communityID")
		if communityID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		var input SendMessageInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}
		if input.Message == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}
		if len(input.Message) > message.MaxContentBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrMessageContentTooLong))
			return
		}

		if err := deps.Guard.Authorize(r.Context(), identity.UserID, room.KindCommunity, communityID); err != nil {
			resp.RespondError(w, r, roomErrToResp(err))
			return
		}

		msg, err := deps.Relayer.Relay(r.Context(), room.KindCommunity, communityID, identity.UserID, input.Message)
		if err != nil {
			logx.Error(err, "Failed to relay community message", "community_id", communityID, "sender_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}

// HandleListCommunityMessages returns a community's message history, oldest
// first. Restricted to members.
func HandleListCommunityMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		communityID := chi.URLParam(r, "communityID")
		if communityID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Guard.Authorize(r.Context(), identity.UserID, room.KindCommunity, communityID); err != nil {
			resp.RespondError(w, r, roomErrToResp(err))
			return
		}

		messages, err := deps.Messages.List(r.Context(), room.KindCommunity, communityID, historyLimit(r))
		if err != nil {
			logx.Error(err, "Failed to list community messages", "community_id", communityID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

// HandleListChatMessages returns a private room's message history, oldest
// first. Restricted to the two participants.
func HandleListChatMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		roomID := chi.URLParam(r, "roomID")
		if roomID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Guard.Authorize(r.Context(), identity.UserID, room.KindPrivate, roomID); err != nil {
			resp.RespondError(w, r, roomErrToResp(err))
			return
		}

		messages, err := deps.Messages.List(r.Context(), room.KindPrivate, roomID, historyLimit(r))
		if err != nil {
			logx.Error(err, "Failed to list chat messages", "room_id", roomID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, messages)
	}
}

func historyLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > 200 {
		return defaultHistoryLimit
	}
	return limit
}
