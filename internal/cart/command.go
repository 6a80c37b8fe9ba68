package cart

import (
	"github.com/mossery/storefront-api/internal/discount"
)

// Command is the closed set of cart mutations. Each mutation either fully
// applies or leaves the aggregate untouched; there is no partial application.
type Command interface {
	isCommand()
}

// AddItemCommand adds a product or increments an existing line.
type AddItemCommand struct {
	Item     LineItem
	Quantity int
}

// SetQuantityCommand sets a line's quantity.
type SetQuantityCommand struct {
	ItemID   string
	Quantity int
}

// RemoveItemCommand removes a line.
type RemoveItemCommand struct {
	ItemID string
}

// AttachDiscountCommand attaches a validated rule to the empty discount slot.
type AttachDiscountCommand struct {
	Rule discount.Rule
}

// ClearDiscountCommand detaches the rule.
type ClearDiscountCommand struct{}

// SetDeliveryCommand stores a resolved delivery selection.
type SetDeliveryCommand struct {
	Info DeliveryInfo
}

// ClearDeliveryCommand drops the delivery selection.
type ClearDeliveryCommand struct{}

// ClearCommand resets the cart.
type ClearCommand struct{}

func (AddItemCommand) isCommand()        {}
func (SetQuantityCommand) isCommand()    {}
func (RemoveItemCommand) isCommand()     {}
func (AttachDiscountCommand) isCommand() {}
func (ClearDiscountCommand) isCommand()  {}
func (SetDeliveryCommand) isCommand()    {}
func (ClearDeliveryCommand) isCommand()  {}
func (ClearCommand) isCommand()          {}

// Apply dispatches a command to the matching mutation.
func (a *Aggregate) Apply(cmd Command) error {
	switch c := cmd.(type) {
	case AddItemCommand:
		return a.AddItem(c.Item, c.Quantity)
	case SetQuantityCommand:
		return a.SetQuantity(c.ItemID, c.Quantity)
	case RemoveItemCommand:
		return a.RemoveItem(c.ItemID)
	case AttachDiscountCommand:
		return a.AttachDiscount(c.Rule)
	case ClearDiscountCommand:
		a.ClearDiscount()
		return nil
	case SetDeliveryCommand:
		return a.SetDelivery(c.Info)
	case ClearDeliveryCommand:
		a.ClearDelivery()
		return nil
	case ClearCommand:
		a.Clear()
		return nil
	default:
		return ErrInvalidInput
	}
}
