// Package queue contains the background consumer that listens to the
// movie.changed queue and appends one line per event to movie_audit.log.
package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditLogName is the file written inside the audit log directory.
const AuditLogName = "movie_audit.log"

// StartMovieConsumer connects to RabbitMQ, declares the movie.changed queue
// (durable) and consumes it forever, reconnecting with exponential backoff.
// Malformed messages are rejected without requeue so the loop keeps going.
func StartMovieConsumer(url, logDir string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect
        log.Infof("audit-consumer: connected, writing to %s", filepath.Join(logDir, AuditLogName))

        err = consumeLoop(conn, logDir)
        _ = conn.Close()
        log.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
        time.Sleep(2 * time.Second)
    }
}

func consumeLoop(conn *amqp.Connection, logDir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Warnf("audit-consumer: set QoS failed: %v", err)
    }

    _, err = ch.QueueDeclare(MovieChangedQueue, true, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.Consume(MovieChangedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := handleMessage(logDir, d.Body); err != nil {
            log.Errorf("audit-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func handleMessage(logDir string, body []byte) error {
    var ev MovieEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Action == "" || ev.MovieID == 0 {
        return errors.New("event without action or movie_id")
    }
    if err := os.MkdirAll(logDir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", logDir, err)
    }
    f, err := os.OpenFile(filepath.Join(logDir, AuditLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev MovieEvent) string {
    if ev.Action == ActionDeleted {
        return fmt.Sprintf("[%s] Movie deleted | movie_id=%d\n", ev.OccurredAt, ev.MovieID)
    }
    return fmt.Sprintf("[%s] Movie %s | movie_id=%d | name=%q | date=%s\n",
        ev.OccurredAt, ev.Action, ev.MovieID, ev.Name, ev.Date)
}
