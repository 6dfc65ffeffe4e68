package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"photo-intel-pipeline/metrics"

	"github.com/streadway/amqp"
)

// Message represents a received RabbitMQ message.
type Message struct {
	Body        []byte
	RoutingKey  string
	Exchange    string
	ContentType string
	Timestamp   time.Time
	DeliveryTag uint64
}

// UnmarshalTo unmarshals the message body into the provided interface.
func (m *Message) UnmarshalTo(v any) error {
	return json.Unmarshal(m.Body, v)
}

// CallbackFunc processes a message. Return:
// - nil on success (will Ack)
// - Permanent(err) for permanent failure (will Nack requeue=false)
// - any other error for transient failure (will Nack requeue=true)
type CallbackFunc func(msg *Message) error

// PermanentError marks a message processing failure as non-retriable.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as a PermanentError (non-retriable).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// Subscriber consumes photo events and dispatches them to a bounded worker
// pool. It reconnects with backoff when the broker goes away.
type Subscriber struct {
	amqpURL  string
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
	workers  int
	prefetch int

	// opMu serializes amqp operations on s.channel since amqp.Channel is not safe for concurrent use.
	opMu sync.Mutex

	startOnce sync.Once
	done      chan struct{}

	connected atomic.Bool
}

// NewSubscriber creates a new RabbitMQ subscriber instance.
func NewSubscriber(amqpURL, exchangeName, queueName string, workers, prefetchCount int) (*Subscriber, error) {
	if workers <= 0 {
		workers = 4
	}
	if prefetchCount <= 0 {
		prefetchCount = workers
	}

	s := &Subscriber{
		amqpURL:  amqpURL,
		exchange: exchangeName,
		queue:    queueName,
		workers:  workers,
		prefetch: prefetchCount,
		done:     make(chan struct{}),
	}

	// Establish initial connection so callers fail fast if RabbitMQ is unreachable.
	s.opMu.Lock()
	err := s.reconnectLocked()
	s.opMu.Unlock()
	if err != nil {
		return nil, err
	}
	return s, nil
}

// reconnectLocked tears down any existing channel/connection and recreates them.
// Caller must hold s.opMu.
func (s *Subscriber) reconnectLocked() error {
	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}

	conn, err := amqp.Dial(s.amqpURL)
	if err != nil {
		s.connected.Store(false)
		metrics.RabbitMQConnected.Set(0)
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		s.connected.Store(false)
		metrics.RabbitMQConnected.Set(0)
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(s.exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		s.connected.Store(false)
		metrics.RabbitMQConnected.Set(0)
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(s.queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		s.connected.Store(false)
		metrics.RabbitMQConnected.Set(0)
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	s.queue = q.Name

	s.conn = conn
	s.channel = ch
	s.connected.Store(true)
	metrics.RabbitMQConnected.Set(1)
	return nil
}

// Start begins consuming messages and dispatching them to the routing key callbacks.
func (s *Subscriber) Start(routingKeyCallbacks map[string]CallbackFunc) error {
	s.startOnce.Do(func() {
		jobs := make(chan amqp.Delivery, s.workers)

		// Worker pool: ack/nack is done after processing completes.
		for i := 0; i < s.workers; i++ {
			workerID := i + 1
			go func() {
				for delivery := range jobs {
					s.handle(workerID, delivery, routingKeyCallbacks)
				}
			}()
		}

		// Consume loop: if the broker restarts, the consumer channel closes;
		// reconnect and resume.
		go func() {
			backoff := 1 * time.Second
			for {
				select {
				case <-s.done:
					close(jobs)
					return
				default:
				}

				s.opMu.Lock()
				if s.conn == nil || s.conn.IsClosed() || s.channel == nil {
					if err := s.reconnectLocked(); err != nil {
						s.opMu.Unlock()
						log.Printf("rabbitmq reconnect failed queue=%s exchange=%s err=%v", s.queue, s.exchange, err)
						backoff = s.sleep(backoff)
						continue
					}
				}

				// Re-apply QoS and bindings on each (re)connect.
				if err := s.channel.Qos(s.prefetch, 0, false); err != nil {
					s.markDown()
					s.opMu.Unlock()
					log.Printf("rabbitmq qos failed queue=%s err=%v", s.queue, err)
					backoff = s.sleep(backoff)
					continue
				}
				bindFailed := false
				for routingKey := range routingKeyCallbacks {
					if err := s.channel.QueueBind(s.queue, routingKey, s.exchange, false, nil); err != nil {
						s.markDown()
						log.Printf("rabbitmq bind failed queue=%s routing_key=%s err=%v", s.queue, routingKey, err)
						bindFailed = true
						break
					}
				}
				if bindFailed {
					s.opMu.Unlock()
					backoff = s.sleep(backoff)
					continue
				}

				msgs, err := s.channel.Consume(s.queue, "", false, false, false, false, nil)
				s.opMu.Unlock()
				if err != nil {
					s.markDown()
					log.Printf("rabbitmq consume failed queue=%s err=%v", s.queue, err)
					backoff = s.sleep(backoff)
					continue
				}

				log.Printf("rabbitmq consuming exchange=%s queue=%s workers=%d prefetch=%d", s.exchange, s.queue, s.workers, s.prefetch)
				backoff = 1 * time.Second

				drained := false
				for !drained {
					select {
					case <-s.done:
						close(jobs)
						return
					case delivery, ok := <-msgs:
						if !ok {
							s.markDown()
							log.Printf("rabbitmq delivery channel closed queue=%s; reconnecting", s.queue)
							backoff = s.sleep(backoff)
							drained = true
							continue
						}
						jobs <- delivery
					}
				}
			}
		}()
	})
	return nil
}

func (s *Subscriber) markDown() {
	s.connected.Store(false)
	metrics.RabbitMQConnected.Set(0)
}

func (s *Subscriber) sleep(backoff time.Duration) time.Duration {
	time.Sleep(backoff)
	if backoff < 30*time.Second {
		backoff *= 2
	}
	return backoff
}

// handle processes one delivery: run the callback, then ack or nack.
// Panics and unknown routing keys are treated as permanent.
func (s *Subscriber) handle(workerID int, delivery amqp.Delivery, callbacks map[string]CallbackFunc) {
	startedAt := time.Now()
	metrics.RabbitMQLastDeliverySeconds.Set(float64(startedAt.Unix()))

	callback, exists := callbacks[delivery.RoutingKey]
	if !exists {
		s.finish(delivery, false, fmt.Errorf("no callback for routing key %s", delivery.RoutingKey))
		log.Printf("rabbitmq worker_finish worker_id=%d routing_key=%s action=nack err=%q",
			workerID, delivery.RoutingKey, "no callback for routing key")
		return
	}

	msg := &Message{
		Body:        delivery.Body,
		RoutingKey:  delivery.RoutingKey,
		Exchange:    delivery.Exchange,
		ContentType: delivery.ContentType,
		Timestamp:   delivery.Timestamp,
		DeliveryTag: delivery.DeliveryTag,
	}

	var callbackErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callbackErr = Permanent(fmt.Errorf("callback panicked: %v", r))
			}
		}()
		callbackErr = callback(msg)
	}()

	if callbackErr == nil {
		s.ack(delivery)
		log.Printf("rabbitmq worker_finish worker_id=%d routing_key=%s duration_ms=%d action=ack",
			workerID, delivery.RoutingKey, time.Since(startedAt).Milliseconds())
		return
	}

	requeue := !isPermanent(callbackErr) && !delivery.Redelivered
	s.finish(delivery, requeue, callbackErr)
	log.Printf("rabbitmq worker_finish worker_id=%d routing_key=%s duration_ms=%d action=nack requeue=%t err=%v",
		workerID, delivery.RoutingKey, time.Since(startedAt).Milliseconds(), requeue, callbackErr)
}

func (s *Subscriber) ack(delivery amqp.Delivery) {
	s.opMu.Lock()
	err := delivery.Ack(false)
	s.opMu.Unlock()
	if err != nil {
		log.Printf("rabbitmq ack failed delivery_tag=%d err=%v", delivery.DeliveryTag, err)
	}
}

func (s *Subscriber) finish(delivery amqp.Delivery, requeue bool, cause error) {
	s.opMu.Lock()
	err := delivery.Nack(false, requeue)
	s.opMu.Unlock()
	if err != nil {
		log.Printf("rabbitmq nack failed delivery_tag=%d cause=%v err=%v", delivery.DeliveryTag, cause, err)
	}
}

// Close closes the subscriber connection and channel.
func (s *Subscriber) Close() error {
	select {
	case <-s.done:
		// already closed
	default:
		close(s.done)
	}

	var err error
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.channel != nil {
		if channelErr := s.channel.Close(); channelErr != nil {
			log.Printf("Failed to close channel: %v", channelErr)
			err = channelErr
		}
		s.channel = nil
	}
	if s.conn != nil {
		if connErr := s.conn.Close(); connErr != nil {
			log.Printf("Failed to close connection: %v", connErr)
			if err == nil {
				err = connErr
			}
		}
		s.conn = nil
	}

	s.connected.Store(false)
	metrics.RabbitMQConnected.Set(0)
	return err
}

// IsConnected indicates if the subscriber is currently connected (best-effort).
func (s *Subscriber) IsConnected() bool {
	if s.conn == nil || s.channel == nil || s.conn.IsClosed() {
		return false
	}
	return s.connected.Load()
}
