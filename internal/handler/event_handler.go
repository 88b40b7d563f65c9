package handler

import (
	"net/http"

	"sbchat/internal/app/notify"
	"sbchat/internal/pkg/errs"
	"sbchat/internal/pkg/req"
	"sbchat/internal/pkg/resp"
)

// EventInput is the payload posted by other backend services when a business
// transaction completes and the affected user should be alerted.
type EventInput struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// HandlePurchaseCompleted queues a purchase notification for the buyer.
func HandlePurchaseCompleted(deps *AppDeps) http.HandlerFunc {
	return handleEvent(deps, notify.TypePurchase)
}

// HandleTradeRequested queues a trade request notification for the counterparty.
func HandleTradeRequested(deps *AppDeps) http.HandlerFunc {
	return handleEvent(deps, notify.TypeTradeRequest)
}

// HandleTradeAccepted queues a trade accepted notification for the requester.
func HandleTradeAccepted(deps *AppDeps) http.HandlerFunc {
	return handleEvent(deps, notify.TypeTrade)
}

// handleEvent validates the payload and hands it to the dispatcher. It responds
// as soon as the notification is queued; persistence and delivery run in the
// background and their failures never surface to the caller.
func handleEvent(deps *AppDeps, notificationType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, authErr := requireIdentity(r); authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		var input EventInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.UserID == "" || input.Message == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		deps.Dispatcher.Notify(input.UserID, notificationType, input.Message)

		resp.RespondSuccess(w, r, nil)
	}
}
