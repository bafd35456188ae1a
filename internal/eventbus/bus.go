package eventbus

import (
	"context"
	"sync"

	"pkt.systems/owlcore/schema"
	"pkt.systems/pslog"
)

// EventType identifies the event payload.
type EventType string

const (
	// EventTabs carries the full tab tree after a change.
	EventTabs EventType = "tabs"
	// EventNav carries navigation state for the active tab.
	EventNav EventType = "nav"
	// EventFavicon carries a resolved favicon.
	EventFavicon EventType = "favicon"
	// EventSidebar carries sidebar visibility.
	EventSidebar EventType = "sidebar"
	// EventHealth carries control-plane health transitions.
	EventHealth EventType = "health"
)

// Event represents a UI-facing event emitted by the core service.
type Event struct {
	Type    EventType
	Tabs    schema.TabsEvent
	Nav     schema.NavEvent
	Favicon schema.FaviconEvent
	Sidebar schema.SidebarEvent
	Health  schema.HealthEvent
}

// Bus fans out events to UI subscribers. Slow subscribers lose events rather
// than stalling the publisher.
type Bus struct {
	mu    sync.Mutex
	subs  map[chan Event]struct{}
	log   pslog.Logger
	depth int
}

// New constructs a Bus.
func New(logger pslog.Logger) *Bus {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Bus{
		subs:  make(map[chan Event]struct{}),
		log:   logger,
		depth: 256,
	}
}

// Subscribe registers a subscriber and returns a channel + cancel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	if b == nil {
		return nil, func() {}
	}
	ch := make(chan Event, b.depth)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	count := len(b.subs)
	b.mu.Unlock()
	if b.log != nil {
		b.log.Debug("eventbus subscribe", "subs", count)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
			if b.log != nil {
				b.log.Debug("eventbus unsubscribe")
			}
		})
	}
}

// OnTabs publishes a tab tree event.
func (b *Bus) OnTabs(event schema.TabsEvent) {
	b.publish(Event{Type: EventTabs, Tabs: event})
}

// OnNav publishes a navigation state event.
func (b *Bus) OnNav(event schema.NavEvent) {
	b.publish(Event{Type: EventNav, Nav: event})
}

// OnFavicon publishes a favicon event.
func (b *Bus) OnFavicon(event schema.FaviconEvent) {
	b.publish(Event{Type: EventFavicon, Favicon: event})
}

// OnSidebar publishes a sidebar visibility event.
func (b *Bus) OnSidebar(event schema.SidebarEvent) {
	b.publish(Event{Type: EventSidebar, Sidebar: event})
}

// OnHealth publishes a health event.
func (b *Bus) OnHealth(event schema.HealthEvent) {
	b.publish(Event{Type: EventHealth, Health: event})
}

func (b *Bus) publish(event Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	subs := make([]chan Event, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()
	if len(subs) == 0 {
		return
	}
	dropped := 0
	for _, sub := range subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.log != nil {
		b.log.Trace("eventbus dropped", "count", dropped)
	}
}
