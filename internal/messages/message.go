package messages

import "fmt"

// A Message is just a struct with some fields we can use as discriminators for the rate limiter.
type Message struct {
	CustomerID string `json:"customer_id"`
	Type       string `json:"type"`
	Body       string `json:"body"`
}

// Key is the rate limiting key for the message.
func (m Message) Key() string {
	return fmt.Sprintf("%s:%s", m.CustomerID, m.Type)
}
