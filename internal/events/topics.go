package events

// Topic constants for domain events emitted by the service.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
	TopicPaymentChanged     = "order.payment_changed"
	TopicRevisionRequested  = "revision.requested"
)

// DefaultTopics returns every topic the bus accepts.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderStatusChanged,
		TopicPaymentChanged,
		TopicRevisionRequested,
	}
}

func knownTopic(topic string) bool {
	for _, t := range DefaultTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
