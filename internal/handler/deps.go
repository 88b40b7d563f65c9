package handler

import (
	"errors"
	"net/http"

	"sbchat/internal/app/chat"
	"sbchat/internal/app/message"
	"sbchat/internal/app/notify"
	"sbchat/internal/app/room"
	"sbchat/internal/app/user"
	"sbchat/internal/configs"
	"sbchat/internal/pkg/auth/jwt"
	"sbchat/internal/pkg/errs"
)

// AppDeps bundles the shared dependencies injected into every handler. All of
// them are constructed once in main and live for the process lifetime.
type AppDeps struct {
	Config        *configs.AppConfig
	Hub           *chat.Hub
	Relayer       *chat.Relayer
	Guard         *room.Guard
	Rooms         *room.Store
	Users         *user.Store
	Messages      *message.Store
	Notifications *notify.Store
	Dispatcher    *notify.Dispatcher
}

// requireIdentity extracts the authenticated payload from the request context,
// or returns the unauthorized error for anonymous requests.
func requireIdentity(r *http.Request) (*jwt.Payload, *errs.CustomError) {
	payload := jwt.GetPayloadFromContext(r)
	if payload == nil {
		return nil, errs.NewError(errs.ErrUnauthorized)
	}
	return payload, nil
}

// roomErrToResp maps room-package sentinel errors onto response errors.
func roomErrToResp(err error) *errs.CustomError {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return errs.NewError(errs.ErrRoomNotFound)
	case errors.Is(err, room.ErrNotMember):
		return errs.NewError(errs.ErrNotMember)
	case errors.Is(err, room.ErrNotParticipant):
		return errs.NewError(errs.ErrNotParticipant)
	case errors.Is(err, room.ErrCommunityFull):
		return errs.NewError(errs.ErrCommunityFull)
	case errors.Is(err, room.ErrAlreadyMember):
		return errs.NewError(errs.ErrAlreadyMember)
	default:
		return errs.NewError(errs.ErrUnknown)
	}
}
