package data

import (
	"net/http"

	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/svc"
)

// ListUsersHandler returns the whole dummy dataset.
// Route: GET /api/data/users
func ListUsersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := svcCtx.Users.All(r.Context())
		if err != nil {
			logging.Errorf("Failed to list users: %v", err)
			httputil.InternalError(w, "Failed to list users")
			return
		}
		httputil.OkJSON(w, resp)
	}
}
