package handler

import (
    "context"
    "time"

    "github.com/karimdhz/atelier-portal/internal/queue"
    queue_publisher "github.com/karimdhz/atelier-portal/internal/service"
)

// publishAccountEvent sends an account lifecycle event to the broker off the
// request path.  Publishing is best effort; a down broker never fails the
// HTTP operation that triggered the event.
func publishAccountEvent(ev queue.AccountEvent) {
    ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        _ = queue_publisher.PublishAccountEvent(ctx, ev)
    }()
}
