// Package kchannel implements Komrad's addressable mailbox: a Channel
// with a data queue and a control queue.
//
// Grounded on original_source/crates/komrad-ast/src/channel.rs, whose
// Tokio mpsc pair + Mutex-guarded receivers translate directly into Go
// buffered channels guarded by context cancellation.
package kchannel

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"komrad/pkg/kast"
	"komrad/pkg/kvalue"
)

var log = logrus.WithField("component", "kchannel")

// DefaultAgentCapacity is the default bound for an agent's data queue.
const DefaultAgentCapacity = 32

// ReplyCapacity is the fixed capacity of an ephemeral ask-reply
// channel.
const ReplyCapacity = 1

// ControlMsg is the payload of the control queue. Stop is currently
// the only control message.
type ControlMsg int

const (
	ControlStop ControlMsg = iota
)

// Channel is a sending handle to an agent's mailbox: a data sender and
// a control sender, identified by a monotonic UUID (v7-style).
// Channel satisfies kvalue.ChannelRef.
type Channel struct {
	id       uuid.UUID
	data     chan kast.Message
	control  chan ControlMsg
}

// Listener is the receiving side of a Channel, held only by the
// spawning agent. Recv, RecvControl and Select each hold the
// Listener's mutex while they wait, so the two receivers are drained
// by one reader at a time.
type Listener struct {
	mu      sync.Mutex
	id      uuid.UUID
	data    <-chan kast.Message
	control <-chan ControlMsg
}

// New creates a Channel/Listener pair with the given data-queue
// capacity; the control queue always shares the same capacity.
func New(capacity int) (Channel, *Listener) {
	if capacity <= 0 {
		capacity = DefaultAgentCapacity
	}
	id := uuid.Must(uuid.NewV7())
	data := make(chan kast.Message, capacity)
	control := make(chan ControlMsg, capacity)
	ch := Channel{id: id, data: data, control: control}
	l := &Listener{id: id, data: data, control: control}
	return ch, l
}

// UUID satisfies kvalue.ChannelRef.
func (c Channel) UUID() string { return c.id.String() }

// Equal implements Channel equality as UUID equality.
func (c Channel) Equal(o Channel) bool { return c.id == o.id }

func (c Channel) Value() kvalue.Value { return kvalue.ChanV(c) }

// IsZero reports whether this Channel was never initialized via New.
func (c Channel) IsZero() bool { return c.data == nil }

// Send delivers a Message asynchronously, blocking only while the
// data queue is full. It returns ctx's error when ctx is done before
// the message is queued; mapping that to Error(SendError) is left to
// the caller (pkg/keval). A receiver that has stopped reading is not
// detected: Send succeeds while the queue has room and otherwise
// blocks until ctx is done.
func (c Channel) Send(ctx context.Context, msg kast.Message) error {
	select {
	case c.data <- msg:
		return nil
	case <-ctx.Done():
		log.WithField("channel", c.id.String()).WithError(ctx.Err()).Debug("send canceled, data queue full or receiver gone")
		return ctx.Err()
	}
}

// Control sends a control message on the separate control queue,
// which may overtake queued data messages.
func (c Channel) Control(ctx context.Context, m ControlMsg) error {
	select {
	case c.control <- m:
		return nil
	case <-ctx.Done():
		log.WithField("channel", c.id.String()).WithError(ctx.Err()).Debug("control send canceled, control queue full or receiver gone")
		return ctx.Err()
	}
}

// UUID satisfies kvalue.ChannelRef for Listener-originated lookups.
func (l *Listener) UUID() string { return l.id.String() }

// Recv waits for the next data message, cancellable via ctx; it
// reports ok=false when ctx is done first. Dropping every Channel
// handle does not close the queue, so that case is not reported.
func (l *Listener) Recv(ctx context.Context) (kast.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case msg, ok := <-l.data:
		return msg, ok
	case <-ctx.Done():
		return kast.Message{}, false
	}
}

// RecvControl waits for the next control message, cancellable via ctx.
func (l *Listener) RecvControl(ctx context.Context) (ControlMsg, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case m, ok := <-l.control:
		return m, ok
	case <-ctx.Done():
		return 0, false
	}
}

// Select performs a single blocking, ctx-cancellable select
// across both queues plus an optional extra event source, used by
// pkg/kagent's main loop. extra may be nil.
func (l *Listener) Select(ctx context.Context, extra <-chan kast.Message) (msg kast.Message, isControl bool, control ControlMsg, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if extra == nil {
		select {
		case m, o := <-l.data:
			return m, false, 0, o
		case c, o := <-l.control:
			return kast.Message{}, true, c, o
		case <-ctx.Done():
			return kast.Message{}, false, 0, false
		}
	}
	select {
	case m, o := <-l.data:
		return m, false, 0, o
	case c, o := <-l.control:
		return kast.Message{}, true, c, o
	case m, o := <-extra:
		return m, false, 0, o
	case <-ctx.Done():
		return kast.Message{}, false, 0, false
	}
}
