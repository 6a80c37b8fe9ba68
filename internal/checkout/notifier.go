package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/events"
	"github.com/mossery/storefront-api/internal/order"
)

// ReceiptNotifier emails an order receipt when order.created fires.
type ReceiptNotifier struct {
	Email  common.EmailSender
	Logger zerolog.Logger
}

// Register subscribes the notifier on the bus.
func (n *ReceiptNotifier) Register(bus *events.Bus) {
	if bus == nil {
		return
	}
	bus.Subscribe(events.TopicOrderCreated, n.handle)
}

func (n *ReceiptNotifier) handle(_ context.Context, e events.Event) {
	if n.Email == nil {
		return
	}
	var o order.Order
	if err := json.Unmarshal(e.Payload, &o); err != nil {
		n.Logger.Warn().Err(err).Str("event_id", e.ID).Msg("receipt payload decode failed")
		return
	}
	if strings.TrimSpace(o.Email) == "" {
		return
	}
	subject := fmt.Sprintf("Order confirmation %s", o.ID)
	html := fmt.Sprintf("<p>Thanks for your order.</p><p>Order %s, total %.2f %s.</p>",
		o.ID, o.Total(), o.Currency)
	if err := n.Email.Send(o.Email, subject, html); err != nil {
		n.Logger.Warn().Err(err).Str("order_id", o.ID).Msg("receipt email failed")
	}
}
