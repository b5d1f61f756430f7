package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/platinummonkey/benjamin/pkg/httputil"
	"github.com/platinummonkey/benjamin/pkg/invitations"
	"github.com/platinummonkey/benjamin/pkg/middleware"
)

func (s *Server) handleInvite(w http.ResponseWriter, r *http.Request) {
	projectUUID, ok := httputil.ParsePathUUIDOrError(w, r, "uuid")
	if !ok {
		return
	}

	var cmd invitations.InviteCommand
	if !httputil.ParseJSONOrError(w, r, &cmd) {
		return
	}
	if !httputil.RequireNonEmpty(w, cmd.Receiver, "username") {
		return
	}
	if !httputil.RequireNonEmpty(w, string(cmd.Role), "role") {
		return
	}
	cmd.ProjectUUID = projectUUID

	invitation, err := s.invitationService.Invite(r.Context(), middleware.Username(r), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, invitation)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	tokenStr := httputil.GetPathVar(r, "token")
	token, err := uuid.Parse(tokenStr)
	if err != nil {
		httputil.WriteBadRequest(w, "invalid invitation token")
		return
	}

	invitation, err := s.invitationService.Join(r.Context(), middleware.Username(r),
		invitations.JoinCommand{Token: token})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{
		"project_uuid": invitation.ProjectUUID.String(),
		"status":       "joined",
	})
}
