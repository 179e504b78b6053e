package notifier

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"deepfund/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram 通知器：运行结束后将组合摘要推送至指定群/频道。
type Telegram struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	retries int
	pause   time.Duration
}

func NewTelegram(botToken string, chatID int64) (*Telegram, error) {
	return newTelegram(botToken, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 15 * time.Second})
}

func newTelegram(botToken string, chatID int64, endpoint string, client tgbotapi.HTTPClient) (*Telegram, error) {
	if strings.TrimSpace(botToken) == "" || chatID == 0 {
		return nil, fmt.Errorf("Telegram 配置不完整")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID, retries: 3, pause: time.Second}, nil
}

// SendText 发送文本消息（带最多 3 次重试）
func (t *Telegram) SendText(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	var lastErr error
	for i := 0; i < t.retries; i++ {
		if _, err := t.bot.Send(msg); err != nil {
			lastErr = err
			logger.Debugf("telegram send attempt %d failed: %v", i+1, err)
			time.Sleep(time.Duration(i+1) * t.pause)
			continue
		}
		return nil
	}
	return lastErr
}
