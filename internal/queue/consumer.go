package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogName is the file, inside the log directory, session events are
// appended to.
const AuditLogName = "session.log"

// StartSessionAuditConsumer consumes SessionQueueName and appends one line
// per event to <logDir>/session.log.  It reconnects with exponential backoff
// and returns only when ctx is done.
func StartSessionAuditConsumer(ctx context.Context, url, logDir string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            slog.Warn("Session audit consumer dial failed", "error", err, "retry_in", backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logDir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        slog.Warn("Session audit consume loop ended, reconnecting", "error", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        slog.Warn("Session audit consumer QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(SessionQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(SessionQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleSessionMessage(logDir, d.Body); err != nil {
                slog.Error("Session audit message rejected", "error", err)
                _ = d.Nack(false, false) // no requeue, avoids a poison loop
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleSessionMessage decodes body and appends it to the audit log.
func HandleSessionMessage(logDir string, body []byte) error {
    var ev SessionEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Reason == "" {
        return errors.New("event without reason")
    }
    if err := os.MkdirAll(logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", logDir, err)
    }
    f, err := os.OpenFile(filepath.Join(logDir, AuditLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders ev as a single log line.
func FormatAuditLine(ev SessionEvent) string {
    user := ev.Username
    if user == "" {
        user = "-"
    }
    role := ev.Role
    if role == "" {
        role = "-"
    }
    return fmt.Sprintf("[%s] Session %s | user=%s | role=%s | authenticated=%t | console=%q\n",
        ev.OccurredAt, ev.Reason, user, role, ev.Authenticated, ev.Console)
}
