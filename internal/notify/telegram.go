package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramNotifier pushes operational events to an admin chat. It is
// send-only; delivery failures are logged and dropped so a Telegram
// outage can never stall a scheduled job.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

func (n *TelegramNotifier) JobFailed(jobName string, err error) {
	n.send(fmt.Sprintf("⚠️ Job %q failed: %v", jobName, err))
}

func (n *TelegramNotifier) DailySummary(postsCreated int) {
	n.send(fmt.Sprintf("📝 Daily generation done: %d posts created", postsCreated))
}

func (n *TelegramNotifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error("Failed to send telegram notification",
			zap.Error(err),
			zap.Int64("chat_id", n.chatID))
	}
}
