package api

import (
	"encoding/json"
	"net/http"
	"resumotube/m/v2/app/db/redis"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func (s *Server) Health(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(http.StatusOK)
	_, _ = ctx.WriteString("❤️ from ResumoTube")
}

// SystemStatus serves the status cached by the status worker, computing it when the cache is cold.
func (s *Server) SystemStatus(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	if s.Cache != nil {
		if cached, err := s.Cache.Get(c, redis.SystemStatusKey).Result(); err == nil && cached != "" {
			ctx.SetContentType("application/json")
			ctx.SetStatusCode(http.StatusOK)
			ctx.SetBodyString(cached)
			return
		}
	}
	if s.Status == nil {
		writeError(ctx, http.StatusServiceUnavailable, "Status not available")
		return
	}
	systemStatus := s.Status.GetSystemStatus(c)
	body, err := json.Marshal(systemStatus)
	if err != nil {
		log.WithError(err).Error("SystemStatus: failed to marshal status")
		writeError(ctx, http.StatusInternalServerError, "Failed to get status")
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(body)
}
