package notifier

import "context"

// Message is one unit on the delivery queue. Group and DedupID form the
// deduplication key: a second Send with the same pair inside the dedup window
// is discarded. Within a group the queue preserves submission order and keeps
// at most one un-acknowledged delivery in flight at a time.
type Message struct {
	Body    []byte
	Group   string
	DedupID string
}

// Delivery is a received message. It must be acknowledged with Delete before
// the visibility window lapses or it will be redelivered, up to the queue's
// bounded attempt count, after which it moves to the dead-letter area.
type Delivery struct {
	Message
	ReceiptID string
	Attempt   int
}

type Queue interface {
	Send(ctx context.Context, m Message) error
	// Receive blocks until a delivery is available or ctx is done.
	Receive(ctx context.Context) (*Delivery, error)
	Delete(ctx context.Context, receiptID string) error
}
