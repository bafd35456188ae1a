package core

import "pkt.systems/owlcore/schema"

// EventSink receives state change events from the core service.
type EventSink interface {
	OnTabs(event schema.TabsEvent)
	OnNav(event schema.NavEvent)
	OnFavicon(event schema.FaviconEvent)
	OnSidebar(event schema.SidebarEvent)
	OnHealth(event schema.HealthEvent)
}
