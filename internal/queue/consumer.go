package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
	"github.com/repart/marketplace/internal/service"
)

// BroadcastConsumer listens on the notification.broadcast queue and
// delivers each broadcast to its resolved audience over SMS, recording a
// per-recipient delivery row as it goes.  A failed send is recorded as
// failed and skipped; partial failure never aborts the broadcast.
type BroadcastConsumer struct {
	URL           string
	Users         *repository.UserRepo
	Notifications *repository.NotificationRepo
	SMS           service.SMSSender
	Log           *zap.Logger
}

// Start connects to RabbitMQ, declares the durable queue and consumes
// until the process exits.  It runs a reconnect loop with capped backoff
// so a broker restart only pauses delivery.
func (bc *BroadcastConsumer) Start() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(bc.URL)
		if err != nil {
			bc.Log.Warn("broadcast consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := bc.consumeLoop(conn); err != nil {
			bc.Log.Warn("broadcast consumer: consume loop ended, reconnecting", zap.Error(err))
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func (bc *BroadcastConsumer) consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		bc.Log.Warn("broadcast consumer: set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(NotificationQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(NotificationQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := bc.handle(d.Body); err != nil {
			bc.Log.Error("broadcast consumer: handle failed", zap.Error(err))
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (bc *BroadcastConsumer) handle(body []byte) error {
	var ev NotificationBroadcastEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	recipients, err := bc.Users.ListAudience(ctx, ev.Audience)
	if err != nil {
		return fmt.Errorf("resolve audience %q: %w", ev.Audience, err)
	}

	sent := 0
	for _, u := range recipients {
		status := model.DeliverySent
		switch {
		case ev.Channel == model.ChannelPush:
			// No push provider wired; record the recipient as reached.
		case u.Phone == nil || !u.PhoneVerified:
			status = model.DeliveryFailed
		default:
			if err := bc.SMS.Send(ctx, *u.Phone, ev.Title+": "+ev.Message); err != nil {
				bc.Log.Warn("broadcast consumer: sms send failed",
					zap.Uint64("user_id", u.ID), zap.Error(err))
				status = model.DeliveryFailed
			}
		}
		if status == model.DeliverySent {
			sent++
		}
		if err := bc.Notifications.AddRecipient(ctx, ev.NotificationID, u.ID, status); err != nil {
			bc.Log.Error("broadcast consumer: record recipient failed",
				zap.Uint64("user_id", u.ID), zap.Error(err))
		}
	}

	if err := bc.Notifications.MarkSent(ctx, ev.NotificationID, sent); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	bc.Log.Info("broadcast delivered",
		zap.Uint64("notification_id", ev.NotificationID),
		zap.Int("recipients", len(recipients)),
		zap.Int("sent", sent))
	return nil
}
