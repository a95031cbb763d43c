package api

import (
	"resumotube/m/v2/app/config"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger tags every request with an id and logs it once the response is written.
func RequestLogger(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		requestID := string(ctx.Request.Header.Peek(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx.Response.Header.Set(RequestIDHeader, requestID)

		next(ctx)

		duration := time.Since(start)
		status := ctx.Response.StatusCode()
		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     string(ctx.Method()),
			"path":       string(ctx.Path()),
			"status":     status,
			"duration":   duration.String(),
			"user_agent": string(ctx.UserAgent()),
			"ip":         ctx.RemoteIP().String(),
		})
		switch {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request")
		}
		config.CONFIG.DataDogClient.Timing("http.request.latency", duration, []string{
			"method:" + string(ctx.Method()),
			"status:" + strconv.Itoa(status),
		}, 1)
	}
}
