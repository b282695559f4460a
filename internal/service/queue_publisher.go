// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
    "context"
    "encoding/json"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"

    q "github.com/iliyamo/movie-catalog/internal/queue"
)

// Publisher sends MovieEvent messages to the movie.changed queue.  Each call
// dials its own connection, so a Publisher is safe for concurrent use.
type Publisher struct {
    URL     string
    Timeout time.Duration
}

// New returns a Publisher with a 2s timeout per publish.
func New(url string) *Publisher {
    return &Publisher{URL: url, Timeout: 2 * time.Second}
}

// PublishMovieEvent publishes ev as a persistent JSON message.  The
// function never panics; any error is logged and returned.
func (p *Publisher) PublishMovieEvent(ctx context.Context, ev q.MovieEvent) error {
    if p.Timeout > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, p.Timeout)
        defer cancel()
    }

    conn, err := amqp.DialConfig(p.URL, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(p.Timeout),
    })
    if err != nil {
        log.Warnf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Warnf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        q.MovieChangedQueue, // name
        true,                // durable
        false,               // autoDelete
        false,               // exclusive
        false,               // noWait
        nil,                 // args
    ); err != nil {
        log.Warnf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Warnf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",                  // default exchange
        q.MovieChangedQueue, // routing key = queue name
        false,               // mandatory
        false,               // immediate
        pub,
    ); err != nil {
        log.Warnf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
