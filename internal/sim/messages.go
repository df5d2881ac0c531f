// Asynchronous messaging between characters at different locations.
package sim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/tiny-town/internal/agents"
)

// queueMessage enqueues a message with a short random transit delay of
// 1–3 sim-minutes.
func (w *World) queueMessage(fromID, toID, body string) {
	w.Queue = append(w.Queue, QueuedMessage{
		ID:          uuid.NewString(),
		From:        fromID,
		To:          toID,
		Body:        body,
		SentTick:    w.Tick,
		DeliverTick: w.Tick + uint64(1+w.rng.Intn(3)),
	})
}

// deliverMessages moves every due message into its recipient's inbox
// and raises a one-shot notice the next reasoning prompt will surface.
// Delivery preserves send order.
func (w *World) deliverMessages() {
	remaining := w.Queue[:0]
	for _, m := range w.Queue {
		if m.DeliverTick > w.Tick {
			remaining = append(remaining, m)
			continue
		}

		recipient := w.Characters[m.To]
		if recipient == nil {
			continue
		}
		sender := w.Characters[m.From]
		senderName := m.From
		if sender != nil {
			senderName = sender.Name
		}

		recipient.Inbox = append(recipient.Inbox, agents.InboxMessage{
			ID:       m.ID,
			From:     m.From,
			Body:     m.Body,
			SentTick: m.SentTick,
			ReadTick: w.Tick,
		})
		recipient.HasNewMessage = true
		recipient.NewMessageAlert = fmt.Sprintf("%s wrote: %s", senderName, m.Body)
	}
	w.Queue = remaining
}
