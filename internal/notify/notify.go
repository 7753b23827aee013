package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"storefront/internal/models"
)

// Notifier alerts staff about a freshly placed order. Implementations must
// not block the caller and never report delivery failures upward.
type Notifier interface {
	NewOrder(order models.Order)
}

// Message renders the alert text for order.
func Message(order models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order #%s\n", shortID(order.ID))
	fmt.Fprintf(&b, "Customer: %s (%s)\n", order.Name, order.Phone)
	fmt.Fprintf(&b, "Address: %s\n", order.Address)
	if obs := strings.TrimSpace(order.Observations); obs != "" {
		fmt.Fprintf(&b, "Notes: %s\n", obs)
	}
	fmt.Fprintf(&b, "Total: %s", order.Total.StringFixed(2))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[len(id)-8:]
	}
	return id
}

// LogNotifier writes the alert to the process log. Used when no Telegram chat
// is configured.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NewOrder(order models.Order) {
	n.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.Total.StringFixed(2),
	}).Info("new order received")
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts alerts to a single chat.
type Telegram struct {
	api    sender
	chatID int64
	log    logrus.FieldLogger
}

func NewTelegram(token string, chatID int64, log logrus.FieldLogger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) NewOrder(order models.Order) {
	go t.send(order)
}

func (t *Telegram) send(order models.Order) {
	msg := tgbotapi.NewMessage(t.chatID, Message(order))
	if _, err := t.api.Send(msg); err != nil {
		t.log.WithError(err).WithField("order_id", order.ID).Warn("telegram notification failed")
	}
}
