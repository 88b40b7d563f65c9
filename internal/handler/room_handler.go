/*
Package handler provides HTTP handler functions for community and private room management.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sbchat/internal/app/room"
	"sbchat/internal/pkg/errs"
	"sbchat/internal/pkg/logx"
	"sbchat/internal/pkg/req"
	"sbchat/internal/pkg/resp"
)

type CreateCommunityInput struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	MaxMembers  int    `json:"max_members,omitempty"`
}

// HandleCreateCommunity creates a community; the caller becomes its first member.
func HandleCreateCommunity(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		var input CreateCommunityInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.Title == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		community, err := deps.Rooms.CreateCommunity(r.Context(), identity.UserID, input.Title, input.Description, input.MaxMembers)
		if err != nil {
			logx.Error(err, "Failed to create community", "creator_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, community)
	}
}

// HandleJoinCommunity adds the caller to a community, enforcing the member limit.
func HandleJoinCommunity(deps *AppDeps) http.HandlerFunc {
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

		if err := deps.Rooms.AddMember(r.Context(), communityID, identity.UserID); err != nil {
			resp.RespondError(w, r, roomErrToResp(err))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

// HandleLeaveCommunity removes the caller's membership. Leaving a community the
// caller never joined is a no-op.
func HandleLeaveCommunity(deps *AppDeps) http.HandlerFunc {
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

		if err := deps.Rooms.RemoveMember(r.Context(), communityID, identity.UserID); err != nil {
			logx.Error(err, "Failed to leave community", "community_id", communityID, "user_id", identity.UserID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}

type CreateChatRoomInput struct {
	TutorID  string `json:"tutor_id"`
	CourseID string `json:"course_id"`
}

// HandleCreateChatRoom returns the private room between the calling student and
// the given tutor for one course, creating it on first use.
func HandleCreateChatRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, authErr := requireIdentity(r)
		if authErr != nil {
			resp.RespondError(w, r, authErr)
			return
		}

		var input CreateChatRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if input.TutorID == "" || input.CourseID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		chatRoom, err := deps.Rooms.GetOrCreatePrivateRoom(r.Context(), identity.UserID, input.TutorID, input.CourseID)
		if err != nil {
			logx.Error(err, "Failed to get or create chat room", "student_id", identity.UserID, "tutor_id", input.TutorID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, chatRoom)
	}
}

// HandleListCommunityMembers returns the identities of a community's members.
// Restricted to members.
func HandleListCommunityMembers(deps *AppDeps) http.HandlerFunc {
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

		memberIDs, err := deps.Rooms.ListMemberIDs(r.Context(), communityID)
		if err != nil {
			logx.Error(err, "Failed to list community members", "community_id", communityID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		members, err := deps.Users.GetBatch(r.Context(), memberIDs)
		if err != nil {
			logx.Error(err, "Failed to resolve member identities", "community_id", communityID)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		resp.RespondSuccess(w, r, members)
	}
}
