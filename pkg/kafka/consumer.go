package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "WarrantCalc/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Every partition is owned by one worker, so its messages are handled in
// offset order. A message that keeps failing is retried with backoff, then
// written to the DLQ and committed. Without a DLQ the failed offset stays
// uncommitted and so does everything after it on that partition, until the
// group redelivers from the failed offset.
type Consumer struct {
	cfg        *ConsumerConfig
	log        *applogger.Logger
	hook       ConsumerHook
	handlers   map[string]MessageHandler
	readers    map[string]*kafka.Reader
	committers map[string]offsetCommitter
	dlq        *kafka.Writer

	workers  []chan *message
	stop     chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup

	blockMu sync.Mutex
	blocked map[partitionKey]int64
}

// offsetCommitter is the commit half of *kafka.Reader.
type offsetCommitter interface {
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type message struct {
	topic string
	km    kafka.Message
}

type partitionKey struct {
	topic     string
	partition int
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "warrantcalc",
		StartOffset: "earliest",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
		Logger:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	consumerMetricsOnce.Do(registerConsumerMetrics)

	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	c := &Consumer{
		cfg:        cfg,
		log:        cfg.Logger,
		hook:       NoopHook{},
		handlers:   make(map[string]MessageHandler),
		readers:    make(map[string]*kafka.Reader),
		committers: make(map[string]offsetCommitter),
		workers:    make([]chan *message, cfg.WorkerCount),
		stop:       make(chan struct{}),
		blocked:    make(map[partitionKey]int64),
	}
	for i := range c.workers {
		c.workers[i] = make(chan *message, cfg.BufferSize)
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		}
	}
	return c, nil
}

// WithConsumerHook sets a hook implementation for lifecycle events.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

// RegisterHandler registers a message handler for its topic. Call before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka consumer: handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start opens one reader per registered topic and launches the workers.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}

	start := kafka.FirstOffset
	if c.cfg.StartOffset == "latest" {
		start = kafka.LastOffset
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
			StartOffset: start,
		})
		c.readers[topic] = r
		c.committers[topic] = r
	}

	for _, work := range c.workers {
		c.workWG.Add(1)
		go c.worker(work)
	}
	for topic, r := range c.readers {
		c.readWG.Add(1)
		go c.read(topic, r)
	}

	c.log.Info("kafka consumer: started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID),
	)
	return nil
}

// Stop halts the readers, lets the workers drain what was already fetched
// and closes the readers. Messages left undrained when ctx expires are
// redelivered after a rebalance because their offsets were never committed.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		c.log.Info("kafka consumer: stopping")
		close(c.stop)

		// readers are the only senders on the worker queues
		c.readWG.Wait()
		for _, work := range c.workers {
			close(work)
		}

		done := make(chan struct{})
		go func() {
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer: drain: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("kafka consumer: close reader", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("kafka consumer: close dlq writer", applogger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer: stopped")
		}
	})
	return err
}

// read fetches without auto-commit and blocks on a full work queue.
func (c *Consumer) read(topic string, r *kafka.Reader) {
	defer c.readWG.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("kafka consumer: fetch", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
				continue
			case <-c.stop:
				return
			}
		}

		work := c.workers[c.workerFor(topic, km.Partition)]
		select {
		case work <- &message{topic: topic, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(work)))
		case <-c.stop:
			return
		}
	}
}

// workerFor pins a partition to one worker queue.
func (c *Consumer) workerFor(topic string, partition int) int {
	h := fnv.New32a()
	h.Write([]byte(topic))
	return int((h.Sum32() + uint32(partition)) % uint32(len(c.workers)))
}

func (c *Consumer) worker(work <-chan *message) {
	defer c.workWG.Done()
	for msg := range work {
		c.process(msg)
	}
}

func (c *Consumer) process(msg *message) {
	handler, ok := c.handlers[msg.topic]
	if !ok {
		return
	}

	start := time.Now()
	attempts, err := c.handle(handler, msg)
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errStopping):
		// leave uncommitted so the message is redelivered
		c.block(msg)
		consumerMessages.WithLabelValues(msg.topic, "abandoned").Inc()
		return
	default:
		result = "failed"
		c.log.Error("kafka consumer: handle failed",
			applogger.String("topic", msg.topic),
			applogger.Int("partition", msg.km.Partition),
			applogger.Int64("offset", msg.km.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		if c.dlq == nil {
			// no DLQ: keep the offset so the message is not lost
			c.block(msg)
			consumerMessages.WithLabelValues(msg.topic, result).Inc()
			return
		}
		if derr := c.deadLetter(msg, attempts, err); derr != nil {
			c.log.Error("kafka consumer: dlq write", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(derr))
			c.block(msg)
			consumerMessages.WithLabelValues(msg.topic, result).Inc()
			return
		}
		result = "dead_lettered"
	}

	if c.isBlocked(msg) {
		// committing would move the group offset past the failed message
		c.log.Warn("kafka consumer: commit held behind failed offset",
			applogger.String("topic", msg.topic),
			applogger.Int("partition", msg.km.Partition),
			applogger.Int64("offset", msg.km.Offset),
		)
		result = "uncommitted"
	} else {
		c.commit(msg)
	}
	consumerMessages.WithLabelValues(msg.topic, result).Inc()
	consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
}

// block records the first uncommitted failure of a partition.
func (c *Consumer) block(msg *message) {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()

	k := partitionKey{topic: msg.topic, partition: msg.km.Partition}
	if off, ok := c.blocked[k]; !ok || msg.km.Offset < off {
		c.blocked[k] = msg.km.Offset
	}
}

// isBlocked reports whether msg sits behind an uncommitted failure. Seeing
// the failed offset again means the group rewound, which lifts the block.
func (c *Consumer) isBlocked(msg *message) bool {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()

	k := partitionKey{topic: msg.topic, partition: msg.km.Partition}
	off, ok := c.blocked[k]
	if !ok {
		return false
	}
	if msg.km.Offset <= off {
		delete(c.blocked, k)
		return false
	}
	return true
}

var errStopping = errors.New("consumer stopping")

// handle runs the hooks and the handler, retrying with backoff.
func (c *Consumer) handle(handler MessageHandler, msg *message) (int, error) {
	var err error
	attempts := 0
	for {
		attempts++
		err = c.attempt(handler, msg)
		if err == nil || attempts > c.cfg.RetryMax {
			return attempts, err
		}
		var hookErr *HookError
		if errors.As(err, &hookErr) {
			// a rejecting hook gives the same answer on every attempt
			return attempts, err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempts)):
		case <-c.stop:
			return attempts, errStopping
		}
	}
}

func (c *Consumer) attempt(handler MessageHandler, msg *message) (err error) {
	ctx := WithTraceID(context.Background(), ExtractTraceID(msg.km))
	ctx, km, data, err := c.hook.BeforeHandle(ctx, msg.topic, msg.km, msg.km.Value)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &HookError{Code: "ERR_PANIC", Err: fmt.Errorf("handler panic: %v", r)}
		}
		c.hook.AfterHandle(ctx, msg.topic, km, data, err)
		if err != nil {
			c.hook.OnError(ctx, msg.topic, km, data, err)
		}
	}()
	return handler.Handle(ctx, data)
}

func (c *Consumer) deadLetter(msg *message, attempts int, cause error) error {
	headers := append([]kafka.Header{
		{Key: "source_topic", Value: []byte(msg.topic)},
		{Key: "source_partition", Value: []byte(strconv.Itoa(msg.km.Partition))},
		{Key: "source_offset", Value: []byte(strconv.FormatInt(msg.km.Offset, 10))},
		{Key: "attempts", Value: []byte(strconv.Itoa(attempts))},
		{Key: "error", Value: []byte(cause.Error())},
	}, msg.km.Headers...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Key:     msg.km.Key,
		Value:   msg.km.Value,
		Headers: headers,
		Time:    time.Now(),
	})
}

// commit retries a few times. A lost commit only causes a redelivery.
func (c *Consumer) commit(msg *message) {
	r := c.committers[msg.topic]
	if r == nil {
		return
	}
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, msg.km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("kafka consumer: commit",
		applogger.String("topic", msg.topic),
		applogger.Int64("offset", msg.km.Offset),
		applogger.Error(err),
	)
}

// backoffWithJitter doubles min per attempt up to max and takes off up to half.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt <= 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerMetricsOnce sync.Once

	consumerQueueDepth    *prometheus.GaugeVec
	consumerMessages      *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
)

func registerConsumerMetrics() {
	consumerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warrantcalc_kafka_consumer_queue_depth",
			Help: "Fetched messages waiting for a worker",
		},
		[]string{"topic"},
	)
	consumerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warrantcalc_kafka_consumer_messages_total",
			Help: "Consumed messages by outcome",
		},
		[]string{"topic", "result"},
	)
	consumerHandleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warrantcalc_kafka_consumer_handle_seconds",
			Help:    "Handling time per message including retries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
}
