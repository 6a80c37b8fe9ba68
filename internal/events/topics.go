package events

// Topics emitted by the storefront.
const (
	// TopicOrderCreated fires once per successful checkout.
	TopicOrderCreated = "order.created"
)
