package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "log/slog"
    "os"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/roadassist-console/internal/service"
)

// Publisher sends session events to the broker.  Each publish dials its own
// connection; events are rare (login, logout, expiry) so pooling is not
// worth the reconnect handling.
type Publisher struct {
    URL     string
    Console string
    Timeout time.Duration

    send func(context.Context, SessionEvent) error // nil means Publish
}

// NewPublisher returns a publisher for url.  console defaults to the host
// name.
func NewPublisher(url, console string) *Publisher {
    if console == "" {
        console, _ = os.Hostname()
    }
    return &Publisher{URL: url, Console: console, Timeout: 5 * time.Second}
}

// Publish sends ev to SessionQueueName as a persistent JSON message.
// Errors are logged and returned; callers are free to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev SessionEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        slog.Warn("Session event dial failed", "error", err)
        return fmt.Errorf("dial broker: %w", err)
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("open channel: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(SessionQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("declare queue: %w", err)
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("encode event: %w", err)
    }

    err = ch.PublishWithContext(ctx, "", SessionQueueName, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
    if err != nil {
        slog.Warn("Session event publish failed", "reason", ev.Reason, "error", err)
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// Forward publishes every future change of sess.  Publishing happens on its
// own goroutine so a slow broker never blocks a login or logout.  The
// returned function stops forwarding.
func (p *Publisher) Forward(sess *service.SessionManager) (stop func()) {
    return sess.Subscribe(func(ch service.Change) {
        ev := EventFromChange(ch, p.Console)
        send := p.send
        if send == nil {
            send = p.Publish
        }
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
            defer cancel()
            _ = send(ctx, ev)
        }()
    })
}
