// Package notify provides in-app notification persistence, outbound
// email dispatch, and the in-process real-time event bus SSE
// subscribers read from. Grounded on
// original_source/backend/app/services/notification.py and
// original_source/backend/app/api/realtime.py.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/OneOfOne/xxhash"
)

// Event mirrors the {type, data, timestamp} payload EventBus.publish
// sends to subscribers.
type Event struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

const busShardCount = 16
const busHashSeed = 0x5bd1e995

type busShard struct {
	mu          sync.Mutex
	subscribers map[string]map[chan Event]bool
}

// Bus is the in-process event bus behind §7's SSE transport: one
// channel per library (library:{id}) or per user (user:{id}), sharded
// by channel-name hash so a burst of subscribes/publishes on one
// library doesn't serialize behind another's lock. Grounded on
// EventBus, generalized from one global dict+lock to xxhash-sharded
// shards the way the teacher shards its cluster map.
type Bus struct {
	shards [busShardCount]*busShard
}

func NewBus() *Bus {
	b := &Bus{}
	for i := range b.shards {
		b.shards[i] = &busShard{subscribers: make(map[string]map[chan Event]bool)}
	}
	return b
}

func (b *Bus) shardFor(channel string) *busShard {
	h := xxhash.ChecksumString64S(channel, busHashSeed)
	return b.shards[h%busShardCount]
}

// Subscribe registers a buffered channel for a channel name, matching
// EventBus.subscribe. Callers must Unsubscribe when done to release the
// slot.
func (b *Bus) Subscribe(channel string) chan Event {
	ch := make(chan Event, 16)
	s := b.shardFor(channel)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribers[channel] == nil {
		s.subscribers[channel] = make(map[chan Event]bool)
	}
	s.subscribers[channel][ch] = true
	return ch
}

func (b *Bus) Unsubscribe(channel string, ch chan Event) {
	s := b.shardFor(channel)
	s.mu.Lock()
	defer s.mu.Unlock()
	if subs, ok := s.subscribers[channel]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(s.subscribers, channel)
		}
	}
	close(ch)
}

// Publish fans an event out to every subscriber of a channel, matching
// EventBus.publish. A full subscriber buffer is dropped rather than
// blocking the publisher — SSE heartbeats mean a slow reader catches up
// on the next tick instead of stalling every other channel.
func (b *Bus) Publish(channel, eventType string, data map[string]interface{}) {
	s := b.shardFor(channel)
	s.mu.Lock()
	subs := make([]chan Event, 0, len(s.subscribers[channel]))
	for ch := range s.subscribers[channel] {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	event := Event{Type: eventType, Data: data, Timestamp: time.Now().UTC()}
	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// LibraryChannel and UserChannel match the "library:{id}"/"user:{id}"
// naming subscribe_to_events and publish_to_user key off of.
func LibraryChannel(libraryID string) string { return fmt.Sprintf("library:%s", libraryID) }
func UserChannel(userID string) string       { return fmt.Sprintf("user:%s", userID) }

// Event type constants, matching EventTypes.
const (
	EventFileCreated  = "file.created"
	EventFileUpdated  = "file.updated"
	EventFileDeleted  = "file.deleted"
	EventFileMoved    = "file.moved"
	EventFileRenamed  = "file.renamed"

	EventDirectoryCreated = "directory.created"
	EventDirectoryUpdated = "directory.updated"
	EventDirectoryDeleted = "directory.deleted"
	EventDirectoryMoved   = "directory.moved"
	EventDirectoryRenamed = "directory.renamed"

	EventShareCreated = "share.created"
	EventShareAccessed = "share.accessed"
	EventShareRevoked = "share.revoked"

	EventNotificationNew  = "notification.new"
	EventNotificationRead = "notification.read"
)
