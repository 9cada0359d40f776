package telegram

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/pos-core/internal/domain/cash"
	"github.com/Spok95/pos-core/internal/domain/products"
	"github.com/Spok95/pos-core/internal/domain/sales"
	"github.com/Spok95/pos-core/internal/infra/logger"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestLowStockText(t *testing.T) {
	got := LowStockText(products.Product{Name: "Coffee", Code: "COF", Stock: 2, MinStock: 3})
	assert.Equal(t, "⚠️ Low stock: Coffee (COF)\nIn stock: 2, minimum: 3", got)
}

func TestSessionClosedText(t *testing.T) {
	closing, variance := 590.0, -10.0
	got := SessionClosedText(cash.Report{
		Session: cash.Session{
			ID: 3, BusinessDay: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			OpeningBalance: 100, ClosingBalance: &closing,
		},
		Summary: sales.Summary{
			Count: 2, Total: 500,
			ByMethod: map[sales.PaymentMethod]float64{sales.MethodCash: 200, sales.MethodCard: 300},
		},
		ExpectedCash: 600,
		Variance:     &variance,
	})
	want := "🧾 Cash session #3 closed (2024-03-05)\n" +
		"Opening balance: 100.00\n" +
		"Sales: 2, total 500.00\n" +
		"  card: 300.00\n" +
		"  cash: 200.00\n" +
		"Expected: 600.00\n" +
		"Counted: 590.00\n" +
		"Variance: -10.00"
	assert.Equal(t, want, got)
}

func TestNotifierDeliversQueuedMessages(t *testing.T) {
	fake := &fakeSender{}
	n := New(fake, logger.NewWithWriter("test", io.Discard), 42)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	n.LowStock(ctx, products.Product{Name: "Tea", Code: "TEA", Stock: 1, MinStock: 2})
	n.SessionClosed(ctx, cash.Report{Session: cash.Session{ID: 1}})

	require.Eventually(t, func() bool { return fake.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, int64(42), fake.sent[0].ChatID)
	assert.Contains(t, fake.sent[0].Text, "Tea (TEA)")
	assert.Contains(t, fake.sent[1].Text, "Cash session #1 closed")
}

func TestNotifierSurvivesSendErrors(t *testing.T) {
	fake := &fakeSender{err: errors.New("bad gateway")}
	n := New(fake, logger.NewWithWriter("test", io.Discard), 42)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = n.Run(ctx) }()

	n.LowStock(ctx, products.Product{Name: "A"})
	n.LowStock(ctx, products.Product{Name: "B"})
	require.Eventually(t, func() bool { return fake.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	n := New(&fakeSender{}, logger.NewWithWriter("test", io.Discard), 42)
	for i := 0; i < cap(n.queue)+5; i++ {
		n.LowStock(context.Background(), products.Product{Name: "X"})
	}
	assert.Len(t, n.queue, cap(n.queue))
}
