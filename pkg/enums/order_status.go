package enums

// OrderStatus is the payment lifecycle state of an order. Callers supply the
// value verbatim from the gateway callback, so arbitrary strings are stored
// as-is; only the terminal set below carries semantics.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsTerminal reports whether the status ends the order's payment lifecycle.
func (o OrderStatus) IsTerminal() bool {
	switch o {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminalSuccess reports whether the status finalizes the originating cart.
func (o OrderStatus) IsTerminalSuccess() bool {
	return o == OrderStatusCompleted
}
