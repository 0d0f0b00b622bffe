package notifier

import (
	"context"
	"log"

	"SavingsDAO/internal/model"
)

// Sender delivers a chat message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Alerts turns committed governance events into chat messages. Observe
// never blocks the caller: messages queue up and are delivered by Run,
// and are dropped when the queue is full.
type Alerts struct {
	sender Sender
	units  Units
	queue  chan string
}

func NewAlerts(sender Sender, units Units, buffer int) *Alerts {
	if buffer <= 0 {
		buffer = 64
	}
	return &Alerts{sender: sender, units: units, queue: make(chan string, buffer)}
}

func (a *Alerts) Observe(events []model.Event) {
	for _, evt := range events {
		text, ok := FormatEvent(evt, a.units)
		if !ok {
			continue
		}
		select {
		case a.queue <- text:
		default:
			log.Printf("[WARN] notification queue full, dropping %s alert", evt.Type)
		}
	}
}

// Run delivers queued messages until ctx is cancelled.
func (a *Alerts) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-a.queue:
			if err := a.sender.SendWithRetry(ctx, text, 3); err != nil {
				log.Printf("[ERROR] send notification: %v", err)
			}
		}
	}
}
