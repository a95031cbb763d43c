package youtube

import (
	"context"
	"resumotube/m/v2/app/models"
	"sync"
)

// MockAPI is an in-memory YouTube used by tests.
type MockAPI struct {
	API

	mu          sync.Mutex
	ChannelIDs  map[string]string
	Channels    map[string]*models.ChannelInfo
	Latest      map[string]*models.VideoData
	Videos      map[string]*models.VideoData
	Transcripts map[string]string
	Err         error

	LatestCalls     int
	TranscriptCalls int
}

func NewMockAPI() *MockAPI {
	return &MockAPI{
		ChannelIDs:  map[string]string{},
		Channels:    map[string]*models.ChannelInfo{},
		Latest:      map[string]*models.VideoData{},
		Videos:      map[string]*models.VideoData{},
		Transcripts: map[string]string{},
	}
}

// AddChannel registers a channel reachable at channelURL with an optional latest video.
func (m *MockAPI) AddChannel(channelURL string, info models.ChannelInfo, latest *models.VideoData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChannelIDs[channelURL] = info.ChannelID
	m.Channels[info.ChannelID] = &info
	if latest != nil {
		m.Latest[info.ChannelID] = latest
		m.Videos[latest.VideoID] = latest
	}
}

func (m *MockAPI) ResolveChannelID(ctx context.Context, channelURL string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.ChannelIDs[channelURL], nil
}

func (m *MockAPI) Channel(ctx context.Context, channelID string) (*models.ChannelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Channels[channelID], nil
}

func (m *MockAPI) LatestVideo(ctx context.Context, channelID string) (*models.VideoData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LatestCalls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Latest[channelID], nil
}

func (m *MockAPI) VideoDetails(ctx context.Context, videoID string) (*models.VideoData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Videos[videoID], nil
}

func (m *MockAPI) Transcript(ctx context.Context, videoID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranscriptCalls++
	if m.Err != nil {
		return "", m.Err
	}
	transcript, ok := m.Transcripts[videoID]
	if !ok {
		return "", ErrTranscriptUnavailable
	}
	return transcript, nil
}
