package fs

import (
	"errors"
	"net/http"

	"github.com/neboloop/turbo/internal/files"
	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

// ReadFileHandler returns the file at ?path= as text/plain.
// Route: GET /api/fs/read
func ReadFileHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
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

		content, err := svcCtx.Files.Read(r.Context(), req.Path)
		if err != nil {
			code := http.StatusNotFound
			if errors.Is(err, files.ErrOutsideRoot) {
				code = http.StatusForbidden
			}
			httputil.ErrorWithCode(w, code, "Failed to read file: "+err.Error())
			return
		}
		httputil.Text(w, content)
	}
}
