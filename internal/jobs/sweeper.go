// Package jobs holds scheduled maintenance tasks.
package jobs

import (
    "context"
    "log"
    "time"

    "github.com/robfig/cron/v3"

    "github.com/karimdhz/atelier-portal/internal/realtime"
    "github.com/karimdhz/atelier-portal/internal/repository"
)

// StartSweeper schedules the nightly maintenance run: expired password-reset
// tokens are purged and connected admins are notified.  The returned cron
// runner is already started.
func StartSweeper(store repository.UserStore, hub *realtime.Hub) *cron.Cron {
    c := cron.New()
    _, err := c.AddFunc("0 0 * * *", func() { runSweep(store, hub) })
    if err != nil {
        log.Printf("jobs: scheduling sweep failed: %v", err)
        return c
    }
    c.Start()
    return c
}

func runSweep(store repository.UserStore, hub *realtime.Hub) {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    n, err := store.PurgeExpiredResetTokens(ctx, time.Now().UTC())
    if err != nil {
        log.Printf("jobs: reset-token sweep failed: %v", err)
        if hub != nil {
            hub.Broadcast(realtime.AdminRoom, "maintenance:error", map[string]any{"error": err.Error()})
        }
        return
    }
    log.Printf("jobs: reset-token sweep done, %d token(s) purged", n)
    if hub != nil {
        hub.Broadcast(realtime.AdminRoom, "maintenance:done", map[string]any{"purgedResetTokens": n})
    }
}
