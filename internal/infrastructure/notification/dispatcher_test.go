package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/order"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

func valueobjectMoney(amount float64) valueobject.Money {
	return valueobject.NewMoneyINRFromFloat(amount)
}

// captureSender records delivered messages
type captureSender struct {
	mu       sync.Mutex
	messages []Message
	fail     error
	block    chan struct{}
}

func (s *captureSender) Send(_ context.Context, msg Message) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *captureSender) sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func TestDispatcher(t *testing.T) {
	t.Run("delivers enqueued messages", func(t *testing.T) {
		sender := &captureSender{}
		d := NewDispatcher(sender, zap.NewNop(), 8)

		d.Enqueue(Message{To: "a@example.com", Subject: "hello"})
		d.Enqueue(Message{To: "b@example.com", Subject: "world"})
		d.Close()

		messages := sender.sent()
		require.Len(t, messages, 2)
		assert.Equal(t, "a@example.com", messages[0].To)
		assert.Equal(t, "b@example.com", messages[1].To)
	})

	t.Run("enqueue never blocks when the buffer is full", func(t *testing.T) {
		sender := &captureSender{block: make(chan struct{})}
		d := NewDispatcher(sender, zap.NewNop(), 1)

		done := make(chan struct{})
		go func() {
			for range 10 {
				d.Enqueue(Message{To: "x@example.com"})
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Enqueue blocked on a full buffer")
		}

		close(sender.block)
		d.Close()
	})

	t.Run("a failing sender does not stop later deliveries", func(t *testing.T) {
		sender := &captureSender{fail: errors.New("relay down")}
		d := NewDispatcher(sender, zap.NewNop(), 8)

		d.Enqueue(Message{To: "a@example.com"})
		sender.mu.Lock()
		sender.fail = nil
		sender.mu.Unlock()
		d.Enqueue(Message{To: "b@example.com"})
		d.Close()

		messages := sender.sent()
		require.Len(t, messages, 1)
		assert.Equal(t, "b@example.com", messages[0].To)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		d := NewDispatcher(&captureSender{}, zap.NewNop(), 8)
		d.Close()
		assert.NotPanics(t, d.Close)
	})
}

// fakeUserRepo resolves user IDs to a fixed user
type fakeUserRepo struct {
	user *identity.User
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if r.user != nil && r.user.ID == id {
		return r.user, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) FindByEmail(context.Context, string) (*identity.User, error) {
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) Save(context.Context, *identity.User) error { return nil }

func TestOrderEventHandler(t *testing.T) {
	newHandler := func(t *testing.T) (*OrderEventHandler, *captureSender, *identity.User) {
		t.Helper()
		user, err := identity.NewUser("asha@example.com", "s3cret-pass", "Asha Rao")
		require.NoError(t, err)

		sender := &captureSender{}
		d := NewDispatcher(sender, zap.NewNop(), 8)
		t.Cleanup(d.Close)

		return NewOrderEventHandler(&fakeUserRepo{user: user}, d, zap.NewNop()), sender, user
	}

	makeOrder := func(t *testing.T, userID uuid.UUID) *order.Order {
		t.Helper()
		item, err := order.NewOrderItem(uuid.New(), "Cotton Shirt", valueobjectMoney(499), 1, "M", valueobjectMoney(0))
		require.NoError(t, err)

		o, err := order.NewManualOrder(userID, []order.OrderItem{item}, order.ShippingSnapshot{
			Name: "Asha Rao", Phone: "9876543210", Address: "12 MG Road",
			City: "Bengaluru", State: "Karnataka", Pincode: "560001",
		}, order.Amounts{
			Subtotal: valueobjectMoney(499),
			Total:    valueobjectMoney(499),
		}, "TXN-1", order.PaymentMethodUPI)
		require.NoError(t, err)
		return o
	}

	t.Run("order created event produces a confirmation mail", func(t *testing.T) {
		handler, sender, user := newHandler(t)
		o := makeOrder(t, user.ID)

		err := handler.Handle(context.Background(), order.NewOrderCreatedEvent(o))
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return len(sender.sent()) == 1
		}, 2*time.Second, 10*time.Millisecond)

		msg := sender.sent()[0]
		assert.Equal(t, "asha@example.com", msg.To)
		assert.Contains(t, msg.Subject, "Order confirmed")
		assert.Contains(t, msg.Body, "Cotton Shirt")
	})

	t.Run("unknown recipient is an error", func(t *testing.T) {
		handler, _, _ := newHandler(t)
		o := makeOrder(t, uuid.New())

		err := handler.Handle(context.Background(), order.NewOrderCreatedEvent(o))
		require.Error(t, err)
	})

	t.Run("subscribes to lifecycle events only", func(t *testing.T) {
		handler, _, _ := newHandler(t)
		types := handler.EventTypes()

		assert.Contains(t, types, order.EventTypeOrderCreated)
		assert.Contains(t, types, order.EventTypeOrderShipped)
		assert.NotContains(t, types, order.EventTypeOrderPaid)
	})
}
