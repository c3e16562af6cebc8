package notification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen_back_end/internal/models"
)

type fakeMailer struct {
	mu    sync.Mutex
	sent  []Message
	gate  chan struct{}
	fails bool
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.fails {
		return errors.New("smtp: 421 service not available")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// syncBuffer protège le buffer des écritures concurrentes du logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func sampleOrder() models.Order {
	return models.Order{
		OrderNumber:   "ORD-1718020800000-AB12CD34",
		CustomerEmail: "asha@example.in",
		Items: []models.OrderItem{
			{Name: "Pendant Lamp", Quantity: 1, Price: 600},
			{Name: "LED Bulb", Quantity: 2, Price: 200},
		},
		Subtotal:          1000,
		PromoCode:         "DIWALI10",
		PromoCodeDiscount: 80,
		ShippingFee:       50,
		TotalAmount:       970,
		ShippingAddress:   models.ShippingAddress{Name: "Asha <Rao>", PhoneNumber: "9876543210", City: "Bengaluru", Pincode: "560001", Country: "India"},
		PaymentStatus:     models.PaymentCompleted,
		PaymentID:         "5114910",
		OrderStatus:       models.OrderProcessing,
		CreatedAt:         time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC),
	}
}

func newTestDispatcher(m Mailer, workers, queue int) (*Dispatcher, *syncBuffer) {
	buf := &syncBuffer{}
	logger := zerolog.New(buf)
	return NewDispatcher(m, Options{
		AdminEmail:  "admin@lumen.in",
		Workers:     workers,
		QueueSize:   queue,
		SendTimeout: time.Second,
		Logger:      &logger,
	}), buf
}

func TestDispatcherSendsBothEmails(t *testing.T) {
	m := &fakeMailer{}
	d, _ := newTestDispatcher(m, 2, 10)

	d.NotifyAdminOrderPlaced(sampleOrder())
	d.NotifyCustomerOrderConfirmed(sampleOrder())
	require.NoError(t, d.Close(context.Background()))

	msgs := m.messages()
	require.Len(t, msgs, 2)
	recipients := []string{msgs[0].To, msgs[1].To}
	assert.ElementsMatch(t, []string{"admin@lumen.in", "asha@example.in"}, recipients)
	for _, msg := range msgs {
		assert.Contains(t, msg.Subject, "ORD-1718020800000-AB12CD34")
		assert.Contains(t, msg.HTML, "₹970.00")
		assert.NotEmpty(t, msg.Text)
	}
}

func TestDispatcherNeverBlocksWhenQueueIsFull(t *testing.T) {
	m := &fakeMailer{gate: make(chan struct{})}
	d, buf := newTestDispatcher(m, 1, 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			d.NotifyCustomerOrderConfirmed(sampleOrder())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(m.gate)
	require.NoError(t, d.Close(context.Background()))
	assert.Contains(t, buf.String(), "File d'emails pleine")
	assert.LessOrEqual(t, len(m.messages()), 2)
}

func TestDispatcherReportsSendErrors(t *testing.T) {
	m := &fakeMailer{fails: true}
	d, buf := newTestDispatcher(m, 1, 10)

	d.NotifyAdminOrderPlaced(sampleOrder())
	require.NoError(t, d.Close(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "Échec d'envoi d'email")
	assert.Contains(t, out, "421 service not available")
}

func TestDispatcherCloseDrainsQueue(t *testing.T) {
	m := &fakeMailer{}
	d, _ := newTestDispatcher(m, 1, 10)

	for i := 0; i < 5; i++ {
		d.NotifyAdminOrderPlaced(sampleOrder())
	}
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, m.messages(), 5)

	// Après Close, les nouveaux jobs sont ignorés et Close reste idempotent.
	d.NotifyAdminOrderPlaced(sampleOrder())
	require.NoError(t, d.Close(context.Background()))
	assert.Len(t, m.messages(), 5)
}

func TestDispatcherCloseHonoursDeadline(t *testing.T) {
	m := &fakeMailer{gate: make(chan struct{})}
	d, _ := newTestDispatcher(m, 1, 10)
	d.NotifyAdminOrderPlaced(sampleOrder())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Close(ctx), context.DeadlineExceeded)

	close(m.gate)
	require.NoError(t, d.Close(context.Background()))
}

func TestTemplatesEscapeCustomerInput(t *testing.T) {
	msg, err := CustomerOrderConfirmed(sampleOrder())
	require.NoError(t, err)

	assert.Equal(t, "asha@example.in", msg.To)
	assert.Contains(t, msg.HTML, "Asha &lt;Rao&gt;")
	assert.NotContains(t, msg.HTML, "<Rao>")
	assert.Contains(t, msg.Text, "Asha <Rao>")

	admin, err := AdminOrderPlaced("admin@lumen.in", sampleOrder())
	require.NoError(t, err)
	assert.Contains(t, admin.HTML, "-₹80.00")
	assert.Contains(t, admin.HTML, "₹400.00")
	assert.True(t, strings.Contains(admin.Text, "DIWALI10"))
}
