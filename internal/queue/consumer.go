package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartNotificationConsumer connects to RabbitMQ, declares the notification
// queues (durable), and starts consuming them. Each message is appended to
// logs/notifications.log in a single-line, human-friendly format. That file
// is the hand-off point for the external email pipeline. The function runs a reconnect
// loop with capped backoff; processing errors are logged and the offending
// message rejected so the server keeps operating.
func StartNotificationConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(BrokerURL())
		if err != nil {
			log.Printf("notify-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn); err != nil {
			log.Printf("notify-consumer: consume loop ended: %v; reconnecting", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notify-consumer: set QoS failed: %v", err)
	}

	queues := []string{QueueUserSignedUp, QueueReportCreated, QueuePaymentCompleted}
	merged := make(chan delivery)
	done := make(chan struct{})
	defer close(done)
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		// Fan the per-queue streams into one channel. done unblocks these
		// goroutines when the loop below exits first during a reconnect.
		go func(name string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{queue: name, msg: d}:
				case <-done:
					return
				}
			}
			select {
			case merged <- delivery{closed: true}:
			case <-done:
			}
		}(name, msgs)
	}

	for d := range merged {
		if d.closed {
			return errors.New("deliveries channel closed")
		}
		if err := handleMessage(d.queue, d.msg.Body); err != nil {
			log.Printf("notify-consumer: handle %s message failed: %v", d.queue, err)
			_ = d.msg.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.msg.Ack(false)
	}
	return nil
}

type delivery struct {
	queue  string
	msg    amqp.Delivery
	closed bool
}

func handleMessage(queueName string, body []byte) error {
	line, err := formatLine(queueName, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "notifications.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatLine(queueName string, body []byte) (string, error) {
	switch queueName {
	case QueueUserSignedUp:
		var ev UserSignedUpEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Welcome email due | user_id=%d | email=%s | name=%q | credits=%d | via=%s\n",
			ev.CreatedAt, ev.UserID, ev.Email, ev.Name, ev.Credits, ev.Via), nil
	case QueueReportCreated:
		var ev ReportCreatedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Report created | report_id=%d | user_id=%d | verdict=%q | score=%.1f | provider=%s\n",
			ev.CreatedAt, ev.ReportID, ev.UserID, ev.SummaryVerdict, ev.ViabilityScore, ev.Provider), nil
	case QueuePaymentCompleted:
		var ev PaymentCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Payment completed | email=%s | plan=%s | credits=%d | pro=%t\n",
			ev.CompletedAt, ev.Email, ev.Plan, ev.CreditsGranted, ev.ProGranted), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}
