package data

import (
	"net/http"

	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

// PaginatedUsersHandler returns one page of the dummy dataset. Missing,
// malformed or non-positive page/limit values fall back to the defaults.
// Route: GET /api/data/users/paginated
func PaginatedUsersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.PaginatedUsersRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}

		resp, err := svcCtx.Users.Paginate(r.Context(), req.Page, req.Limit)
		if err != nil {
			logging.Errorf("Failed to page users: %v", err)
			httputil.InternalError(w, "Failed to list users")
			return
		}
		httputil.OkJSON(w, resp)
	}
}
