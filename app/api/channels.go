package api

import (
	"errors"
	"net/http"
	"net/url"
	"resumotube/m/v2/app/db/mongo"
	"resumotube/m/v2/app/models"
	"resumotube/m/v2/app/payments"
	"resumotube/m/v2/app/summaries"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

const (
	channelsPrefix      = "/api/channels/"
	DEFAULT_VIDEO_LIMIT = 5
)

// AddChannel follows a YouTube channel, creating the shared channel document on first use.
// The response carries the id of the user's link to the channel.
func (s *Server) AddChannel(ctx *fasthttp.RequestCtx) {
	var req struct {
		ChannelURL string `json:"channelUrl"`
	}
	if !readJSON(ctx, &req) {
		return
	}
	channelURL := strings.TrimSpace(req.ChannelURL)
	if channelURL == "" {
		writeError(ctx, http.StatusBadRequest, "Channel URL is required")
		return
	}
	c, cancel := s.requestContext(ctx)
	defer cancel()

	user, ok := s.currentUser(c, ctx)
	if !ok {
		return
	}
	if err := payments.CheckChannelQuota(c, s.DB, user); err != nil {
		if errors.Is(err, payments.ErrQuotaExceeded) {
			writeError(ctx, http.StatusForbidden, "Channel limit reached for your plan")
			return
		}
		log.WithError(err).Error("AddChannel: failed to check channel quota")
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}

	channelID, err := s.YouTube.ResolveChannelID(c, channelURL)
	if err != nil {
		log.WithError(err).Errorf("AddChannel: failed to resolve %s", channelURL)
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}
	if channelID == "" {
		writeError(ctx, http.StatusBadRequest, "Invalid channel URL")
		return
	}
	info, err := s.YouTube.Channel(c, channelID)
	if err != nil {
		log.WithError(err).Errorf("AddChannel: failed to get channel %s", channelID)
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}
	if info == nil {
		writeError(ctx, http.StatusBadRequest, "Channel not found")
		return
	}
	if info.Handle == "" {
		writeError(ctx, http.StatusBadRequest, "Could not get channel handle")
		return
	}

	channel, err := s.DB.GetChannelByHandle(c, info.Handle)
	switch {
	case errors.Is(err, mongo.ErrNotFound):
		now := s.Now()
		channel = &models.MongoChannel{
			ChannelURL:        channelURL,
			ChannelID:         channelID,
			ChannelHandle:     info.Handle,
			ProfilePictureURL: info.ProfilePictureURL,
			LastAdded:         now,
			CreatedAt:         now,
		}
		err = s.DB.CreateChannel(c, channel)
	case err == nil:
		channel.LastAdded = s.Now()
		err = s.DB.UpdateChannelLastAdded(c, channel.ID, channel.LastAdded)
	}
	if err != nil {
		log.WithError(err).Errorf("AddChannel: failed to store channel %s", info.Handle)
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}

	_, err = s.DB.GetUserChannel(c, user.Email, info.Handle)
	if err == nil {
		writeError(ctx, http.StatusBadRequest, "Channel already exists")
		return
	}
	if !errors.Is(err, mongo.ErrNotFound) {
		log.WithError(err).Error("AddChannel: failed to look up user channel")
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}
	link := &models.MongoUserChannel{
		UserEmail:     user.Email,
		ChannelHandle: info.Handle,
		CreatedAt:     s.Now(),
	}
	if err := s.DB.CreateUserChannel(c, link); err != nil {
		log.WithError(err).Error("AddChannel: failed to create user channel")
		writeError(ctx, http.StatusInternalServerError, "Failed to add channel")
		return
	}
	log.Infof("AddChannel: %s now follows %s", user.Email, info.Handle)

	response := *channel
	response.ID = link.ID
	writeJSON(ctx, http.StatusOK, response)
}

func (s *Server) ListChannels(ctx *fasthttp.RequestCtx) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	links, channels, err := s.Summaries.UserChannels(c, userEmail(ctx))
	if err != nil {
		log.WithError(err).Error("ListChannels: failed to fetch channels")
		writeError(ctx, http.StatusInternalServerError, "Failed to fetch channels")
		return
	}
	response := make([]models.MongoChannel, 0, len(channels))
	for i, channel := range channels {
		channel.ID = links[i].ID
		response = append(response, channel)
	}
	writeJSON(ctx, http.StatusOK, response)
}

// channelPath splits /api/channels/{channelUrl}/{action} keeping the encoded slashes of channelUrl.
func channelPath(ctx *fasthttp.RequestCtx) (channelURL string, action string, ok bool) {
	rest, found := strings.CutPrefix(string(ctx.Request.URI().PathOriginal()), channelsPrefix)
	if !found {
		return "", "", false
	}
	segment, action, _ := strings.Cut(rest, "/")
	channelURL, err := url.PathUnescape(segment)
	if err != nil || channelURL == "" {
		return "", "", false
	}
	return channelURL, strings.TrimSuffix(action, "/"), true
}

func (s *Server) channelRoute(ctx *fasthttp.RequestCtx) {
	channelURL, action, ok := channelPath(ctx)
	if !ok {
		writeError(ctx, http.StatusNotFound, "Not found")
		return
	}
	switch {
	case ctx.IsDelete() && action == "":
		s.DeleteChannel(ctx, channelURL)
	case ctx.IsGet() && action == "video":
		s.LatestChannelVideo(ctx, channelURL)
	case ctx.IsGet() && action == "videos":
		s.ChannelVideos(ctx, channelURL)
	default:
		writeError(ctx, http.StatusNotFound, "Not found")
	}
}

// DeleteChannel unfollows the channel and deletes it once nobody follows it.
func (s *Server) DeleteChannel(ctx *fasthttp.RequestCtx, channelURL string) {
	c, cancel := s.requestContext(ctx)
	defer cancel()
	email := userEmail(ctx)

	channel, err := s.DB.GetChannelByURL(c, channelURL)
	if errors.Is(err, mongo.ErrNotFound) {
		writeError(ctx, http.StatusNotFound, "Channel not found")
		return
	}
	if err != nil {
		log.WithError(err).Errorf("DeleteChannel: failed to find %s", channelURL)
		writeError(ctx, http.StatusInternalServerError, "Failed to remove channel")
		return
	}
	deleted, err := s.DB.DeleteUserChannel(c, email, channel.ChannelHandle)
	if err != nil {
		log.WithError(err).Error("DeleteChannel: failed to delete user channel")
		writeError(ctx, http.StatusInternalServerError, "Failed to remove channel")
		return
	}
	if deleted == 0 {
		writeError(ctx, http.StatusNotFound, "Channel not found")
		return
	}

	remaining, err := s.DB.CountChannelUsers(c, channel.ChannelHandle)
	if err != nil {
		log.WithError(err).Errorf("DeleteChannel: failed to count followers of %s", channel.ChannelHandle)
	} else if remaining == 0 {
		if err := s.DB.DeleteChannel(c, channel.ID); err != nil {
			log.WithError(err).Errorf("DeleteChannel: failed to delete channel %s", channel.ChannelHandle)
		} else {
			log.Infof("DeleteChannel: removed %s, no followers left", channel.ChannelHandle)
		}
	}
	writeMessage(ctx, "Channel removed successfully")
}

func (s *Server) LatestChannelVideo(ctx *fasthttp.RequestCtx, channelURL string) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	video, err := s.Summaries.LatestChannelVideo(c, channelURL)
	if err != nil {
		writeChannelError(ctx, err, "Failed to get video summary")
		return
	}
	writeJSON(ctx, http.StatusOK, video)
}

func (s *Server) ChannelVideos(ctx *fasthttp.RequestCtx, channelURL string) {
	c, cancel := s.requestContext(ctx)
	defer cancel()

	videos, err := s.Summaries.ChannelVideos(c, channelURL, queryLimit(ctx, DEFAULT_VIDEO_LIMIT))
	if err != nil {
		writeChannelError(ctx, err, "Failed to get videos")
		return
	}
	writeJSON(ctx, http.StatusOK, videos)
}

func writeChannelError(ctx *fasthttp.RequestCtx, err error, fallback string) {
	switch {
	case errors.Is(err, summaries.ErrChannelNotFound):
		writeError(ctx, http.StatusNotFound, "Channel not found")
	case errors.Is(err, summaries.ErrNoVideos):
		writeError(ctx, http.StatusNotFound, "No videos found for this channel")
	case errors.Is(err, summaries.ErrNoSummary):
		writeError(ctx, http.StatusInternalServerError, "Failed to generate summary")
	default:
		log.WithError(err).WithField("path", string(ctx.Path())).Error(fallback)
		writeError(ctx, http.StatusInternalServerError, fallback)
	}
}

// queryLimit returns fallback when ?limit= is missing or not a positive number.
func queryLimit(ctx *fasthttp.RequestCtx, fallback int64) int64 {
	limit, err := strconv.ParseInt(string(ctx.QueryArgs().Peek("limit")), 10, 64)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
