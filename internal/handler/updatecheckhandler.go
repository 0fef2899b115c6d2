package handler

import (
	"errors"
	"net/http"

	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/logging"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/updater"
)

// UpdateCheckHandler returns the current version and whether an update is available.
func UpdateCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		um := svcCtx.UpdateManager()
		if um == nil {
			httputil.OkJSON(w, &updater.Result{CurrentVersion: svcCtx.Version})
			return
		}
		result, err := um.Check(r.Context())
		if errors.Is(err, updater.ErrBusy) && um.Result() != nil {
			// A download is in flight; the last check is still current.
			httputil.OkJSON(w, um.Result())
			return
		}
		if err != nil {
			// Non-fatal: return current version with available=false
			logging.Debugf("[updater] check failed: %v", err)
			httputil.OkJSON(w, &updater.Result{
				Available:      false,
				CurrentVersion: svcCtx.Version,
			})
			return
		}
		httputil.OkJSON(w, result)
	}
}
