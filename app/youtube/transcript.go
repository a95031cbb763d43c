package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"resumotube/m/v2/app/util"
	"strings"

	log "github.com/sirupsen/logrus"
)

const captionTracksMarker = `"captionTracks":`

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
}

// Transcript scrapes the first caption track of the watch page and joins its segments with a space.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	page, err := c.get(ctx, c.watchURL+"?v="+url.QueryEscape(videoID))
	if err != nil {
		return "", fmt.Errorf("Transcript: failed to load watch page for %s: %w", videoID, err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		return "", fmt.Errorf("Transcript: video %s: %w", videoID, err)
	}

	body, err := c.get(ctx, tracks[0].BaseURL)
	if err != nil {
		return "", fmt.Errorf("Transcript: failed to load captions for %s: %w", videoID, err)
	}

	var captions timedText
	if err := xml.Unmarshal(body, &captions); err != nil {
		return "", fmt.Errorf("Transcript: failed to parse captions for %s: %w", videoID, err)
	}
	if len(captions.Texts) == 0 {
		return "", fmt.Errorf("Transcript: video %s: %w", videoID, ErrTranscriptUnavailable)
	}

	segments := make([]string, 0, len(captions.Texts))
	for _, t := range captions.Texts {
		// caption text is html-escaped a second time inside the xml
		if text := strings.TrimSpace(html.UnescapeString(t.Text)); text != "" {
			segments = append(segments, text)
		}
	}
	log.Debugf("Transcript: video %s has %d segments (%s)", videoID, len(segments), tracks[0].LanguageCode)
	return strings.Join(segments, " "), nil
}

func captionTracks(page []byte) ([]captionTrack, error) {
	idx := strings.Index(string(page), captionTracksMarker)
	if idx < 0 {
		return nil, ErrTranscriptUnavailable
	}
	var tracks []captionTrack
	decoder := json.NewDecoder(strings.NewReader(string(page[idx+len(captionTracksMarker):])))
	if err := decoder.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("failed to parse caption tracks: %w", err)
	}
	if len(tracks) == 0 || tracks[0].BaseURL == "" {
		return nil, ErrTranscriptUnavailable
	}
	return tracks, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := util.Retry(ctx, c.retryMaxElapsed, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return false, err
		}
		req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ResumoTube/1.0)")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return util.RetryableStatus(resp.StatusCode), fmt.Errorf("unexpected status %s", resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		return true, err
	})
	return body, err
}
