package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/homealarm/internal/config"
	"example.com/homealarm/internal/logging"
)

// Message is one report received from the broker.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler records a single message.
type Handler interface {
	HandleMessage(ctx context.Context, topic string, payload []byte) error
}

// Ingestor decouples the broker callback from the store. Messages are queued
// and handled one at a time by a single worker, in arrival order. Once the
// worker stops, Enqueue rejects every message.
type Ingestor struct {
	queue   chan Message
	handler Handler
	log     *logrus.Entry
	done    chan struct{}
	stop    chan struct{}

	stopOnce sync.Once
	mu       sync.RWMutex
	closed   bool
}

func NewIngestor(handler Handler, queueMaxSize int, log *logrus.Entry) *Ingestor {
	if log == nil {
		log = logging.Discard()
	}
	return &Ingestor{
		queue:   make(chan Message, queueMaxSize),
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
		stop:    make(chan struct{}),
	}
}

// Start runs the worker until Stop is called or ctx is cancelled. Either way
// the queue is closed to new messages and drained before the worker exits.
// ctx is handed to the handler, so it should outlive the broker subscription.
func (ig *Ingestor) Start(ctx context.Context) {
	go func() {
		defer close(ig.done)
		for {
			select {
			case <-ctx.Done():
				ig.drain()
				return
			case <-ig.stop:
				ig.drain()
				return
			case msg := <-ig.queue:
				ig.handle(ctx, msg)
			}
		}
	}()
}

// Stop closes the queue, waits for queued messages to be handled and returns
// once the worker has exited. Start must have been called.
func (ig *Ingestor) Stop() {
	ig.stopOnce.Do(func() { close(ig.stop) })
	<-ig.done
}

// Done is closed once the worker has exited.
func (ig *Ingestor) Done() <-chan struct{} { return ig.done }

func (ig *Ingestor) drain() {
	ig.mu.Lock()
	ig.closed = true
	ig.mu.Unlock()

	// The run context is gone; give the tail its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-ig.queue:
			ig.handle(ctx, msg)
		default:
			return
		}
	}
}

func (ig *Ingestor) handle(ctx context.Context, msg Message) {
	id := uuid.NewString()
	ctx = logging.WithRequestID(ctx, id)
	log := logging.ForContext(ctx, ig.log).WithField("topic", msg.Topic)

	if err := ig.handler.HandleMessage(ctx, msg.Topic, msg.Payload); err != nil {
		if errors.Is(err, ErrUnknownTopic) {
			log.Warnf("ignoring message: %s", err)
			return
		}
		log.Errorf("message not recorded: %s", err)
		return
	}
	log.Debug("message recorded")
}

// Enqueue never blocks; it reports false when the queue is full or closed.
func (ig *Ingestor) Enqueue(msg Message) bool {
	ig.mu.RLock()
	defer ig.mu.RUnlock()
	if ig.closed {
		return false
	}
	select {
	case ig.queue <- msg:
		return true
	default:
		return false
	}
}

// Subscriber connects to the broker and feeds every matching message to an Ingestor.
type Subscriber struct {
	client mqtt.Client
	filter string
	log    *logrus.Entry

	mu         sync.Mutex
	subscribed bool
}

func NewSubscriber(cfg config.MQTTConfig, filter string, ig *Ingestor, log *logrus.Entry) *Subscriber {
	if log == nil {
		log = logging.Discard()
	}
	s := &Subscriber{filter: filter, log: log}

	var onMessage mqtt.MessageHandler = func(_ mqtt.Client, m mqtt.Message) {
		if !ig.Enqueue(Message{Topic: m.Topic(), Payload: m.Payload()}) {
			log.Warnf("ingest queue full or closed, dropped message on [%s]", m.Topic())
		}
	}
	var onConnect mqtt.OnConnectHandler = func(c mqtt.Client) {
		log.Infof("connected to broker, subscribing to [%s]", filter)
		if token := c.Subscribe(filter, 1, onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe failed: %s", token.Error())
			return
		}
		s.mu.Lock()
		s.subscribed = true
		s.mu.Unlock()
	}
	var onLost mqtt.ConnectionLostHandler = func(_ mqtt.Client, err error) {
		log.Warnf("broker connection lost: %s", err)
		s.mu.Lock()
		s.subscribed = false
		s.mu.Unlock()
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "homealarm-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.OnConnect = onConnect
	opts.OnConnectionLost = onLost

	s.client = mqtt.NewClient(opts)
	return s
}

func (s *Subscriber) Connect() error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return nil
}

// Subscribed reports whether the topic filter is currently active.
func (s *Subscriber) Subscribed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed
}

func (s *Subscriber) Close() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.filter).WaitTimeout(2 * time.Second)
	}
	s.client.Disconnect(250)
	s.log.Info("disconnected from broker")
}
