// Ops alerts delivered to Slack and to the Telegram system chat
package alerts

import (
	"context"
	"errors"
	"fmt"
	"resumotube/m/v2/app/config"
	"resumotube/m/v2/app/util"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// telegram rejects longer messages
const TELEGRAM_MAX_MESSAGE_LENGTH = 4096

type Notifier interface {
	Alert(ctx context.Context, message string) error
	ServiceDown(ctx context.Context, system string)
}

type Alerts struct {
	AppName         string
	SlackWebhookURL string
	TelegramBot     *telego.Bot
	TelegramChatID  telego.ChatID
}

// New skips every channel whose credentials are missing.
func New(cfg *config.Config) *Alerts {
	a := &Alerts{
		AppName:         cfg.AppName,
		SlackWebhookURL: cfg.SlackWebhookURL,
	}
	if cfg.TelegramSystemBotToken == "" {
		log.Warn("alerts: telegram system bot token is empty, telegram alerts are disabled")
		return a
	}
	bot, err := telego.NewBot(cfg.TelegramSystemBotToken, botLoggerOption(cfg))
	if err != nil {
		log.WithError(err).Error("alerts: failed to create telegram system bot")
		return a
	}
	chatID, _ := strconv.ParseInt(cfg.TelegramSystemTo, 10, 64)
	a.TelegramBot = bot
	a.TelegramChatID = tu.ID(chatID)
	return a
}

func botLoggerOption(cfg *config.Config) telego.BotOption {
	if cfg.Environment == "production" {
		return telego.WithDefaultLogger(false, true)
	}
	return telego.WithDefaultDebugLogger()
}

// Alert sends message to every configured channel and returns the joined delivery errors.
func (a *Alerts) Alert(ctx context.Context, message string) error {
	var errs []error
	if a.SlackWebhookURL != "" {
		err := slack.PostWebhookContext(ctx, a.SlackWebhookURL, &slack.WebhookMessage{Text: message})
		if err != nil {
			errs = append(errs, fmt.Errorf("Alert: failed to post to slack: %w", err))
		}
	}
	if a.TelegramBot != nil {
		for _, chunk := range util.ChunkString(message, TELEGRAM_MAX_MESSAGE_LENGTH) {
			if _, err := a.TelegramBot.SendMessage(tu.Message(a.TelegramChatID, chunk)); err != nil {
				errs = append(errs, fmt.Errorf("Alert: failed to send to telegram: %w", err))
				break
			}
		}
	}
	config.CONFIG.DataDogClient.Incr("alerts.sent", []string{fmt.Sprintf("success:%t", len(errs) == 0)}, 1)
	return errors.Join(errs...)
}

func (a *Alerts) ServiceDown(ctx context.Context, system string) {
	message := "🔥 " + a.AppName + ": " + system + " is down 🔥"
	log.Error(message)
	if err := a.Alert(ctx, message); err != nil {
		log.WithError(err).Error("ServiceDown: failed to deliver alert")
	}
}
