package handler

import (
	"net/http"
	"time"

	"github.com/neboloop/turbo/internal/httputil"
	"github.com/neboloop/turbo/internal/svc"
	"github.com/neboloop/turbo/internal/types"
)

func HealthCheckHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.OkJSON(w, &types.HealthResponse{
			Status:    "ok",
			Name:      svcCtx.Config.App.Name,
			Version:   svcCtx.Version,
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
}
