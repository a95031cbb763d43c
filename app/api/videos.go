package api

import (
	"errors"
	"net/http"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/payments"
	"resumotube/m/v2/app/summaries"
	"resumotube/m/v2/app/youtube"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	SUMMARY_UNAVAILABLE_MESSAGE = "Não foi possível gerar o resumo neste momento. O vídeo pode não ter legendas disponíveis ou pode ser muito curto."
	SUMMARY_RETRY_AFTER_SECONDS = 3600
)

type summaryUnavailable struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}

// SummarizeVideo adds a single video to the user's history. Videos already in the history
// do not count towards the monthly quota.
func (s *Server) SummarizeVideo(ctx *fasthttp.RequestCtx) {
	var req struct {
		VideoURL string `json:"videoUrl"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	videoURL := strings.TrimSpace(req.VideoURL)
	if videoURL == "" {
		writeError(ctx, http.StatusBadRequest, "Video URL is required")
		return
	}
	videoID, ok := youtube.VideoIDFromURL(videoURL)
	if !ok {
		writeError(ctx, http.StatusBadRequest, "Invalid YouTube video URL")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	_, err := s.DB.GetUserVideoSummary(c, user.Email, videoID)
	if errors.Is(err, mongo.ErrNotFound) {
		err = payments.CheckVideoQuota(c, s.DB, user)
	}
	if errors.Is(err, payments.ErrQuotaExceeded) {
		writeError(ctx, http.StatusForbidden, "Monthly video limit reached for your plan")
		return
	}
	if err != nil {
		log.WithError(err).Error("SummarizeVideo: failed to check video quota")
		writeError(ctx, http.StatusInternalServerError, "Failed to generate video summary")
		return
	}

	summary, err := s.Summaries.SummarizeVideoForUser(c, user.Email, videoURL)
	switch {
	case err == nil:
		writeJSON(ctx, http.StatusOK, summary)
	case errors.Is(err, summaries.ErrInvalidVideoURL):
		writeError(ctx, http.StatusBadRequest, "Invalid YouTube video URL")
	case errors.Is(err, summaries.ErrVideoNotFound):
		writeError(ctx, http.StatusNotFound, "Video not found or missing required information")
	case errors.Is(err, summaries.ErrNoSummary):
		writeJSON(ctx, http.StatusServiceUnavailable, summaryUnavailable{
			Error:      SUMMARY_UNAVAILABLE_MESSAGE,
			RetryAfter: SUMMARY_RETRY_AFTER_SECONDS,
		})
	default:
		log.WithError(err).Errorf("SummarizeVideo: failed to summarize %s", videoURL)
		writeError(ctx, http.StatusInternalServerError, "Failed to generate video summary")
	}
}

// VideoSummaries lists the user's history, newest first. Without ?limit= everything is returned.
func (s *Server) VideoSummaries(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	history, err := s.DB.GetUserVideoSummaries(c, userEmail(ctx), queryLimit(ctx, 0))
	if err != nil {
		log.WithError(err).Error("VideoSummaries: failed to get video summaries")
		writeError(ctx, http.StatusInternalServerError, "Failed to get video summaries")
		return
	}
	writeJSON(ctx, http.StatusOK, history)
}

func (s *Server) Feed(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	feed, err := s.Summaries.Feed(c, userEmail(ctx))
	if err != nil {
		log.WithError(err).Error("Feed: failed to fetch feed")
		writeError(ctx, http.StatusInternalServerError, "Failed to fetch feed")
		return
	}
	writeJSON(ctx, http.StatusOK, feed)
}

func (s *Server) Search(ctx *fasthttp.RequestCtx) {
	query := strings.TrimSpace(string(ctx.QueryArgs().Peek("query")))
	if query == "" {
		writeError(ctx, http.StatusBadRequest, "Search query is required")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	results, err := s.Summaries.Search(c, userEmail(ctx), query, string(ctx.QueryArgs().Peek("type")))
	if err != nil {
		log.WithError(err).Error("Search: failed to search videos")
		writeError(ctx, http.StatusInternalServerError, "Failed to search videos")
		return
	}
	writeJSON(ctx, http.StatusOK, results)
}
