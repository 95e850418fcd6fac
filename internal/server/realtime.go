package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/babytracker/internal/records"
)

const (
	RealtimeEventRecordChanged  = "record-change"
	RealtimeEventProfileChanged = "profile-change"
	realtimeEventHeartbeat      = "heartbeat"
	realtimeSourceBackend       = "babytracker-backend"
	defaultRealtimeBuffer       = 16
)

// Change actions carried by realtime messages.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RealtimeMessage announces a change to one owner's data.
type RealtimeMessage struct {
	OwnerID   records.OwnerID
	EventType string
	Kind      records.Kind
	Action    string
	RecordIDs []string
	Timestamp time.Time
}

// RealtimeDispatcher fans messages out to the subscribers of each owner.
// Slow subscribers drop messages instead of blocking publishers.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[records.OwnerID]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[records.OwnerID]map[int64]*realtimeSubscriber),
		bufferSize:  defaultRealtimeBuffer,
	}
}

// Subscribe registers a stream for owner until ctx ends or cleanup is called.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, owner records.OwnerID) (<-chan RealtimeMessage, func()) {
	if owner == "" {
		ch := make(chan RealtimeMessage)
		close(ch)
		return ch, func() {}
	}
	subscriber := &realtimeSubscriber{
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(owner, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() { d.unregisterSubscriber(owner, subscriber.id) })
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers message to every subscriber of its owner.
func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.OwnerID == "" || message.EventType == "" {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, subscriber := range d.subscribers[message.OwnerID] {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the number of open streams for owner.
func (d *RealtimeDispatcher) SubscriberCount(owner records.OwnerID) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[owner])
}

func (d *RealtimeDispatcher) registerSubscriber(owner records.OwnerID, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	subscriber.id = d.nextID
	if _, ok := d.subscribers[owner]; !ok {
		d.subscribers[owner] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[owner][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(owner records.OwnerID, subscriberID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	subscribers := d.subscribers[owner]
	if subscribers == nil {
		return
	}
	delete(subscribers, subscriberID)
	if len(subscribers) == 0 {
		delete(d.subscribers, owner)
	}
}
