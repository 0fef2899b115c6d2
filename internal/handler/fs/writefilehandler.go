package fs

import (
	"errors"
	"net/http"

	"github.com/neboloop/turbo/internal/crashlog"
	"github.com/neboloop/turbo/internal/files"
	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

// WriteFileHandler stores {path, content}. An empty content is a valid
// (empty) file; a missing one is rejected.
// Route: POST /api/fs/write
func WriteFileHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.FSWriteRequest
		if err := httputil.Parse(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
		if req.Path == "" || req.Content == nil {
			httputil.ErrorWithCode(w, http.StatusBadRequest, "Path and content are required")
			return
		}

		if err := svcCtx.Files.Write(r.Context(), req.Path, *req.Content); err != nil {
			if errors.Is(err, files.ErrOutsideRoot) {
				httputil.ErrorWithCode(w, http.StatusForbidden, "Failed to write file: "+err.Error())
				return
			}
			crashlog.LogError("fs", err, map[string]string{"path": req.Path})
			httputil.InternalError(w, "Failed to write file: "+err.Error())
			return
		}
		httputil.OkJSON(w, &types.FSWriteResponse{Success: true})
	}
}
