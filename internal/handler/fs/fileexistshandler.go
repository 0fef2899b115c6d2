package fs

import (
	"net/http"

	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

// FileExistsHandler reports whether ?path= exists. Any failure to check
// counts as not existing.
// Route: GET /api/fs/exists
func FileExistsHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.FSPathRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.Path == "" {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "Path is required")
			return
		}

		exists, err := svcCtx.Files.Exists(r.Context(), req.Path)
		httputil.OkJSON(w, &types.FSExistsResponse{Exists: err == nil && exists})
	}
}
