package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

var CONFIG *Config

const (
	SUMMARY_MODEL       = "gpt-4o-mini"
	SUMMARY_TEMPERATURE = 0.5
	SUMMARY_MAX_TOKENS  = 800

	// transcripts longer than this are cut before prompting
	SUMMARY_MAX_TRANSCRIPT_CHARS = 60000
	SUMMARY_MIN_TRANSCRIPT_CHARS = 100

	CHANNEL_VIDEO_TTL = 24 * time.Hour
	FEED_VIDEO_TTL    = 6 * time.Hour
	REFRESH_LOCK_TTL  = 2 * time.Minute

	REFRESH_WORKER_INTERVAL     = 15 * time.Minute
	REFRESH_BATCH_SIZE          = 10
	STATUS_WORKER_INTERVAL      = time.Minute
	CLEAR_USAGE_WORKER_INTERVAL = 24 * time.Hour

	SUMMARY_SYSTEM_PROMPT = "You are a helpful assistant that summarizes YouTube videos and provides clear, structured insights."

	SUMMARY_USER_PROMPT = `Summarize the following YouTube video transcript. Focus on extracting the most important insights, main arguments, and conclusions. If the video includes any practical tips, actionable advice, step-by-step methods, or frameworks, list them clearly and concisely.

Structure the output as follows:
1. Summary – A concise overview of the video's key points.
2. Key Insights – Bullet points of the most valuable takeaways or ideas.
3. Actionable Advice / Practical Steps – Any recommended actions, strategies, or how-to instructions mentioned in the video.

Please ensure the tone is neutral and informative, and avoid filler or repetition. Prioritize clarity and usefulness.

Transcript:
`

	EMAIL_FROM = "ResumoTube <noreply@resumotube.com.br>"

	// database holding the existing channel and summary documents
	DEFAULT_MONGO_DB_NAME = "youtube_summaries"
)

type Config struct {
	AppName                string
	ChannelVideoTTL        time.Duration
	DataDogClient          statsd.ClientInterface
	Environment            string
	FeedVideoTTL           time.Duration
	FrontendURL            string
	Google                 Google
	JWTSecret              string
	ListenAddress          string
	MongoDBConnection      string
	MongoDBName            string
	OpenAIAPIKey           string
	OpenAIAPIEndpoint      string
	Redis                  Redis
	RefreshBatchSize       int64
	RefreshWorkerInterval  time.Duration
	ResendAPIKey           string
	SlackWebhookURL        string
	StatusWorkerInterval   time.Duration
	StripeSecretKey        string
	StripeWebhookSecret    string
	StripeCurrency         string
	TelegramSystemBotToken string
	TelegramSystemTo       string
	YouTubeAPIKey          string
}

type Google struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

// DatabaseName falls back to DEFAULT_MONGO_DB_NAME when MongoDBName is unset.
func (c *Config) DatabaseName() string {
	if c.MongoDBName == "" {
		return DEFAULT_MONGO_DB_NAME
	}
	return c.MongoDBName
}
