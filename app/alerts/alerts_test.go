package alerts

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/models"
	"strings"
	"sync"
	"testing"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	config.CONFIG = &config.Config{
		DataDogClient: &statsd.NoOpClient{},
	}
}

// stub token that matches the pattern ^\d{9,10}:[\w-]{35}$
func stubToken() string {
	const digits = "0123456789"
	const alphaNum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_"
	b := strings.Builder{}
	for i := 0; i < 9; i++ {
		b.WriteByte(digits[rand.Intn(len(digits))])
	}
	b.WriteString(":")
	for i := 0; i < 35; i++ {
		b.WriteByte(alphaNum[rand.Intn(len(alphaNum))])
	}
	return b.String()
}

type telegramRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (r *telegramRecorder) bot(t *testing.T) *telego.Bot {
	bot, err := telego.NewBot(stubToken(), telego.WithHTTPClient(&http.Client{
		Transport: models.RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			r.mu.Lock()
			r.bodies = append(r.bodies, string(body))
			r.mu.Unlock()
			return &http.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/json"}},
				Body:       io.NopCloser(strings.NewReader(`{"ok": true, "result": {"message_id": 1, "date": 0, "chat": {"id": 42, "type": "private"}}}`)),
			}, nil
		}),
	}), telego.WithDiscardLogger())
	require.NoError(t, err)
	return bot
}

func TestServiceDown(t *testing.T) {
	var slackMessages []slackPayload
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload slackPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		mu.Lock()
		slackMessages = append(slackMessages, payload)
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	recorder := &telegramRecorder{}
	a := &Alerts{
		AppName:         "resumotube",
		SlackWebhookURL: server.URL,
		TelegramBot:     recorder.bot(t),
		TelegramChatID:  tu.ID(42),
	}
	a.ServiceDown(context.Background(), "MongoDB")

	require.Len(t, slackMessages, 1)
	assert.Equal(t, "🔥 resumotube: MongoDB is down 🔥", slackMessages[0].Text)
	require.Len(t, recorder.bodies, 1)
	assert.Contains(t, recorder.bodies[0], "MongoDB is down")
}

type slackPayload struct {
	Text string `json:"text"`
}

func TestAlertReportsSlackFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := &Alerts{AppName: "resumotube", SlackWebhookURL: server.URL}
	assert.Error(t, a.Alert(context.Background(), "teste"))
}

func TestNewWithoutCredentials(t *testing.T) {
	a := New(&config.Config{AppName: "resumotube"})
	assert.Nil(t, a.TelegramBot)
	assert.NoError(t, a.Alert(context.Background(), "nobody listens"))
}

func TestAlertSplitsLongTelegramMessages(t *testing.T) {
	recorder := &telegramRecorder{}
	a := &Alerts{AppName: "resumotube", TelegramBot: recorder.bot(t), TelegramChatID: tu.ID(42)}

	require.NoError(t, a.Alert(context.Background(), strings.Repeat("linha de alerta\n", 400)))
	assert.Len(t, recorder.bodies, 2)
}
