// Package queue defines message payloads exchanged over the message broker.
package queue

// AccountQueueName is the durable queue carrying account lifecycle events.
const AccountQueueName = "account.events"

// Account event types.
const (
    EventUserRegistered = "user.registered"
    EventUserApproved   = "user.approved"
    EventUserRejected   = "user.rejected"
)

// AccountEvent is published when an account is registered or when an admin
// decides on it.  It carries enough information for downstream consumers to
// notify connected clients and write audit lines without querying the
// primary database.
type AccountEvent struct {
    Type       string `json:"type"`
    UserID     uint64 `json:"user_id"`
    Name       string `json:"name"`
    Email      string `json:"email"`
    Role       string `json:"role"`
    Status     string `json:"status"`
    OccurredAt string `json:"occurred_at"`
}
