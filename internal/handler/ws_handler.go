package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"lobbychat/internal/app/chat"
	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/auth/jwt"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/limiter"
	"lobbychat/internal/pkg/logx"
	"lobbychat/internal/pkg/metrics"
	"lobbychat/internal/pkg/resp"
)

// rejectReason labels an identity gate failure for the admission metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, user.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, user.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, user.ErrUnauthenticated):
		return "unauthenticated"
	default:
		return "lookup_failed"
	}
}

// HandleWebSocket authenticates the handshake, upgrades the connection and runs the
// client's pumps. The token is taken from the "token" query parameter or a bearer header.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("websocket connection rejected: rate limit exceeded", "ip", limiter.ClientIP(r))
			metrics.AdmissionsRejected.WithLabelValues("rate_limited").Inc()
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			token = jwt.BearerToken(r)
		}

		identity, err := deps.Gate.Authenticate(r.Context(), token)
		if err != nil {
			reason := rejectReason(err)
			metrics.AdmissionsRejected.WithLabelValues(reason).Inc()
			if reason == "lookup_failed" {
				logx.Error(err, "websocket admission: identity lookup failed")
			} else {
				logx.Info("websocket connection rejected", "reason", reason)
			}
			resp.RespondError(w, r, user.GateError(err))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "failed to upgrade connection", "user_id", identity.ID)
			return
		}

		client := chat.NewClient(conn, identity)
		logx.Info("websocket connection established", "user_id", identity.ID, "conn_id", client.ID)

		go client.WritePump()

		deps.Hub.Admit(client)
		client.ReadPump(deps.Hub)
	}
}

// HandlePresence returns the current online list and connection count to signed-in callers.
func HandlePresence(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if jwt.GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		users, total := deps.Hub.PresenceSnapshot()
		resp.RespondSuccess(w, r, map[string]any{
			"users":        users,
			"clientsTotal": total,
		})
	}
}
