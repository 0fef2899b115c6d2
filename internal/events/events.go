package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// HandlerFunc is the function called when an event is emitted.
type HandlerFunc func(context.Context, any) error

// SubjectOption configures a Subject
type SubjectOption func(*subjectConfig)

type subjectConfig struct {
	replayEnabled bool
	cacheSize     int
	bufferSize    int
	syncDelivery  bool
	emitTimeout   time.Duration
	logger        *slog.Logger
}

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) SubjectOption {
	return func(cfg *subjectConfig) { cfg.bufferSize = size }
}

// WithReplay keeps the last cacheSize events per subject and replays the ones
// matching a topic to subscribers that ask for it.
func WithReplay(cacheSize int) SubjectOption {
	return func(cfg *subjectConfig) {
		cfg.replayEnabled = true
		cfg.cacheSize = cacheSize
	}
}

// WithLogger sets a structured logger for handler errors
func WithLogger(logger *slog.Logger) SubjectOption {
	return func(cfg *subjectConfig) { cfg.logger = logger }
}

// WithSyncDelivery delivers inline on the event loop goroutine, so handlers
// see events in emit order and are never called concurrently.
func WithSyncDelivery() SubjectOption {
	return func(cfg *subjectConfig) { cfg.syncDelivery = true }
}

// WithEmitTimeout bounds how long Emit waits for buffer space.
func WithEmitTimeout(d time.Duration) SubjectOption {
	return func(cfg *subjectConfig) { cfg.emitTimeout = d }
}

// ErrClosed is returned by Emit after Complete.
var ErrClosed = fmt.Errorf("events: subject closed")

// Emit emits an event to the given topic.
func Emit[T any](subject *Subject, topic string, value T) error {
	if atomic.LoadInt32(&subject.closed) == 1 {
		return ErrClosed
	}
	evt := event{topic: topic, message: value}

	timer := time.NewTimer(subject.config.emitTimeout)
	defer timer.Stop()
	select {
	case subject.events <- evt:
		return nil
	case <-subject.shutdown:
		return ErrClosed
	case <-timer.C:
		return fmt.Errorf("events: emit on %s timed out", topic)
	}
}

// Subscribe subscribes a typed handler to the given topic.
// Events whose payload is not a T are reported to the logger and skipped.
func Subscribe[T any](subject *Subject, topic string, handler func(context.Context, T) error, replay ...bool) Subscription {
	wantsReplay := len(replay) > 0 && replay[0]

	wrapped := HandlerFunc(func(ctx context.Context, data any) error {
		if typed, ok := data.(T); ok {
			return handler(ctx, typed)
		}
		return fmt.Errorf("type assertion failed for %T, expected %T", data, *new(T))
	})

	subID := atomic.AddInt64(&subject.nextSubID, 1)
	sub := Subscription{
		Topic:   topic,
		Handler: wrapped,
		ID:      fmt.Sprintf("%s-%d", topic, subID),
	}
	sub.Unsubscribe = func() { subject.removeSubscription(sub.ID) }

	// Replay before registering so replayed events precede live ones.
	if subject.config.replayEnabled && wantsReplay {
		subject.replayEvents(sub)
	}
	subject.addSubscription(sub)
	return sub
}

// Complete shuts down the event loop. Idempotent.
func Complete(s *Subject) {
	if s == nil {
		return
	}
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		close(s.shutdown)

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	}
}

type event struct {
	topic   string
	message any
}

// Subscription represents a handler subscribed to a specific topic.
type Subscription struct {
	Topic       string
	Handler     HandlerFunc
	ID          string
	Unsubscribe func()
}

type subscriberMap map[string]map[string]Subscription

// Subject is a topic-based publish/subscribe hub with a single event loop.
type Subject struct {
	subscribers atomic.Pointer[subscriberMap]
	cache       atomic.Pointer[[]event]
	nextSubID   int64
	eventCount  int64

	events   chan event
	shutdown chan struct{}
	config   subjectConfig

	closed int32
	wg     sync.WaitGroup
}

// NewSubject creates a new Subject with optional configuration.
func NewSubject(opts ...SubjectOption) *Subject {
	cfg := subjectConfig{
		bufferSize:  512,
		emitTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Subject{
		events:   make(chan event, cfg.bufferSize),
		shutdown: make(chan struct{}),
		config:   cfg,
	}

	empty := make(subscriberMap)
	s.subscribers.Store(&empty)
	if cfg.replayEnabled {
		emptyCache := make([]event, 0, cfg.cacheSize)
		s.cache.Store(&emptyCache)
	}

	s.wg.Add(1)
	go s.eventLoop()
	return s
}

// EventCount returns how many events the loop has processed.
func (s *Subject) EventCount() int64 { return atomic.LoadInt64(&s.eventCount) }

func (s *Subject) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case evt := <-s.events:
			atomic.AddInt64(&s.eventCount, 1)
			if s.config.replayEnabled {
				s.addToCache(evt)
			}

			subs := s.subscribers.Load()
			for _, sub := range (*subs)[evt.topic] {
				s.sendToSubscriber(sub, evt, s.config.syncDelivery)
			}
		}
	}
}

// addSubscription adds a subscription using copy-on-write
func (s *Subject) addSubscription(sub Subscription) {
	for {
		oldSubs := s.subscribers.Load()
		newSubs := copySubscribers(*oldSubs)
		if _, ok := newSubs[sub.Topic]; !ok {
			newSubs[sub.Topic] = make(map[string]Subscription)
		}
		newSubs[sub.Topic][sub.ID] = sub
		if s.subscribers.CompareAndSwap(oldSubs, &newSubs) {
			return
		}
	}
}

// removeSubscription removes a subscription using copy-on-write
func (s *Subject) removeSubscription(subID string) {
	for {
		oldSubs := s.subscribers.Load()
		newSubs := copySubscribers(*oldSubs)

		found := false
		for topic, topicSubs := range newSubs {
			if _, ok := topicSubs[subID]; ok {
				delete(topicSubs, subID)
				if len(topicSubs) == 0 {
					delete(newSubs, topic)
				}
				found = true
				break
			}
		}
		if !found {
			return
		}
		if s.subscribers.CompareAndSwap(oldSubs, &newSubs) {
			return
		}
	}
}

func copySubscribers(original subscriberMap) subscriberMap {
	cp := make(subscriberMap, len(original))
	for topic, topicSubs := range original {
		cp[topic] = make(map[string]Subscription, len(topicSubs))
		for id, sub := range topicSubs {
			cp[topic][id] = sub
		}
	}
	return cp
}

// addToCache appends evt, evicting the oldest entry when full
func (s *Subject) addToCache(evt event) {
	for {
		oldCache := s.cache.Load()
		newCache := make([]event, len(*oldCache), s.config.cacheSize)
		copy(newCache, *oldCache)
		if len(newCache) == s.config.cacheSize && len(newCache) > 0 {
			newCache = newCache[1:]
		}
		newCache = append(newCache, evt)
		if s.cache.CompareAndSwap(oldCache, &newCache) {
			return
		}
	}
}

func (s *Subject) replayEvents(sub Subscription) {
	for _, evt := range *s.cache.Load() {
		if evt.topic == sub.Topic {
			s.sendToSubscriber(sub, evt, true)
		}
	}
}

// sendToSubscriber delivers evt inline when sync is set, else on a new goroutine.
func (s *Subject) sendToSubscriber(sub Subscription, evt event, sync bool) {
	deliver := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := sub.Handler(ctx, evt.message); err != nil && s.config.logger != nil {
			s.config.logger.Debug("event handler error",
				"topic", evt.topic,
				"error", err,
				"subscription_id", sub.ID)
		}
	}

	if sync {
		deliver()
	} else {
		go deliver()
	}
}
