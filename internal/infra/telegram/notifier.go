// Package telegram pushes operational alerts (low stock, till closed) to
// an admin chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier queues messages and sends them from Run, so a slow Telegram API
// never holds up a sale or a till close.
type Notifier struct {
	api       sender
	log       *slog.Logger
	adminChat int64
	queue     chan string
}

func New(api sender, log *slog.Logger, adminChatID int64) *Notifier {
	return &Notifier{api: api, log: log, adminChat: adminChatID, queue: make(chan string, 64)}
}

// Connect authorizes the bot token against the Telegram API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return api, nil
}

func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-n.queue:
			n.send(text)
		}
	}
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.adminChat, text)
	if _, err := n.api.Send(msg); err != nil {
		n.log.Error("telegram send failed", "err", err)
	}
}

func (n *Notifier) enqueue(text string) {
	select {
	case n.queue <- text:
	default:
		n.log.Warn("telegram queue full, message dropped")
	}
}

func (n *Notifier) LowStock(_ context.Context, p products.Product) {
	n.enqueue(LowStockText(p))
}

func (n *Notifier) SessionClosed(_ context.Context, r cash.Report) {
	n.enqueue(SessionClosedText(r))
}

func LowStockText(p products.Product) string {
	return fmt.Sprintf("⚠️ Low stock: %s (%s)\nIn stock: %g, minimum: %g", p.Name, p.Code, p.Stock, p.MinStock)
}

func SessionClosedText(r cash.Report) string {
	var b strings.Builder
	s := r.Session
	fmt.Fprintf(&b, "🧾 Cash session #%d closed (%s)\n", s.ID, s.BusinessDay.Format(time.DateOnly))
	fmt.Fprintf(&b, "Opening balance: %.2f\n", s.OpeningBalance)
	fmt.Fprintf(&b, "Sales: %d, total %.2f\n", r.Summary.Count, r.Summary.Total)

	methods := make([]string, 0, len(r.Summary.ByMethod))
	for m := range r.Summary.ByMethod {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(&b, "  %s: %.2f\n", m, r.Summary.ByMethod[sales.PaymentMethod(m)])
	}

	fmt.Fprintf(&b, "Expected: %.2f\n", r.ExpectedCash)
	if s.ClosingBalance != nil {
		fmt.Fprintf(&b, "Counted: %.2f\n", *s.ClosingBalance)
	}
	if r.Variance != nil {
		fmt.Fprintf(&b, "Variance: %+.2f", *r.Variance)
	}
	return strings.TrimRight(b.String(), "\n")
}
