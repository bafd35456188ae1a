package owlcore

import (
	"pkt.systems/owlcore/core"
	"pkt.systems/owlcore/schema"
)

type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnTabs(event schema.TabsEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnTabs(event)
	}
}

func (f eventFanout) OnNav(event schema.NavEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnNav(event)
	}
}

func (f eventFanout) OnFavicon(event schema.FaviconEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnFavicon(event)
	}
}

func (f eventFanout) OnSidebar(event schema.SidebarEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSidebar(event)
	}
}

func (f eventFanout) OnHealth(event schema.HealthEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnHealth(event)
	}
}
