// Package amqp publishes login and logout events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/logger/adapter/stdlogger"
)

const (
	// RoutingKeyLogin is the routing key of login events.
	RoutingKeyLogin = "auth.login"
	// RoutingKeyLogout is the routing key of logout events.
	RoutingKeyLogout = "auth.logout"

	publishTimeout = 5 * time.Second
)

// Event is the JSON body of a published message.
type Event struct {
	Type     string    `json:"type"`
	UserID   uint64    `json:"user_id"`
	Username string    `json:"username"`
	Subject  string    `json:"subject"`
	Context  string    `json:"context,omitempty"`
	At       time.Time `json:"at"`
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends auth events to an exchange.
type Publisher struct {
	ch       Channel
	exchange string
	closers  []func() error
}

// New returns a publisher on an already open channel.
func New(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// Dial connects to url and declares exchange as a durable topic exchange.
func Dial(url, exchange string) (*Publisher, error) {
	amqp.SetLogger(stdlogger.NewComponent("amqp"))

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, apperr.Data("could not connect to amqp broker", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return nil, apperr.Data("could not open amqp channel", err)
	}

	if err = ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()

		return nil, apperr.Data("could not declare exchange "+exchange, err)
	}

	p := New(ch, exchange)
	p.closers = []func() error{ch.Close, conn.Close}

	return p, nil
}

// Close closes channel and connection opened by Dial.
func (p *Publisher) Close() error {
	var first error

	for _, c := range p.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// Publish sends e with routing key key.
func (p *Publisher) Publish(ctx context.Context, key string, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return apperr.Data("could not encode event", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.At,
		Type:         e.Type,
		Body:         body,
	})
	if err != nil {
		return apperr.Data("could not publish "+key, err)
	}

	return nil
}

// LoginListener publishes every accepted login. It never vetoes; publish
// failures are logged.
func (p *Publisher) LoginListener() auth.LoginListener {
	return func(ctx context.Context, e auth.LoginEvent) (string, bool) {
		ev := Event{
			Type:     RoutingKeyLogin,
			UserID:   e.User.ID,
			Username: e.User.Username,
			Subject:  e.Subject,
			At:       e.At,
		}
		if e.Context != nil {
			ev.Context = e.Context.Name
		}

		if err := p.Publish(ctx, RoutingKeyLogin, ev); err != nil {
			log.Error().Err(err).Uint64("user_id", e.User.ID).Msg("failed to publish login event")
		}

		return "", false
	}
}

// LogoutListener publishes every logout.
func (p *Publisher) LogoutListener() auth.LogoutListener {
	return func(ctx context.Context, e auth.LogoutEvent) {
		ev := Event{
			Type:     RoutingKeyLogout,
			UserID:   e.User.ID,
			Username: e.User.Username,
			Subject:  e.Subject,
			At:       e.At,
		}

		if err := p.Publish(ctx, RoutingKeyLogout, ev); err != nil {
			log.Error().Err(err).Uint64("user_id", e.User.ID).Msg("failed to publish logout event")
		}
	}
}
