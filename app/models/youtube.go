package models

import "time"

// VideoData is the subset of YouTube video metadata the service persists.
type VideoData struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	PublishedAt string `json:"publishedAt"`
}

type ChannelInfo struct {
	ChannelID         string `json:"channelId"`
	Handle            string `json:"channelHandle"`
	Title             string `json:"title"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// SearchResult is a video matched by /api/search, tagged with where it came from.
type SearchResult struct {
	VideoID     string    `json:"videoId"`
	ChannelURL  string    `json:"channelUrl,omitempty"`
	Title       string    `json:"title"`
	PublishedAt string    `json:"publishedAt"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"createdAt"`
	Source      string    `json:"source"`
}
