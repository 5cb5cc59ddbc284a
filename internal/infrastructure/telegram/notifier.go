package telegram

import (
	"context"
	"fmt"
	"time"
)

// Notifier sends expiry notices directly to the account's Telegram chat.
// Account ids double as chat ids.
type Notifier struct {
	bot *BotService
}

func NewNotifier(bot *BotService) *Notifier {
	return &Notifier{bot: bot}
}

func (n *Notifier) SendExpired(ctx context.Context, tgID int64) error {
	return n.bot.SendMessage(ctx, tgID,
		"Your VPN subscription has expired. Renew it to restore access.")
}

func (n *Notifier) SendExpiringSoon(ctx context.Context, tgID int64, endAt time.Time) error {
	return n.bot.SendMessage(ctx, tgID, fmt.Sprintf(
		"Your VPN subscription expires on %s. Renew it in time to keep your access.",
		endAt.UTC().Format("2006-01-02 15:04 MST")))
}
