package bridge

import (
	"pkt.systems/owlcore/schema"
)

// Outbound payload shapes. The UI shell replaces its view wholesale on each
// state.tabs, so none of these carry diffs.

type tabsPayload struct {
	Tabs   []schema.TabNode `json:"tabs"`
	Active schema.TabID     `json:"active,omitempty"`
}

type assetsPayload struct {
	DefaultFavicon string `json:"default_favicon"`
}

type sidebarState struct {
	Collapsed bool `json:"collapsed"`
}

type faviconPayload struct {
	IDs        []schema.TabID `json:"ids"`
	FaviconURI string         `json:"favicon_uri"`
}

type healthPayload struct {
	LimitsDegraded bool   `json:"limits_degraded"`
	Detail         string `json:"detail,omitempty"`
}

type errorPayload struct {
	Reason string `json:"reason"`
}

func tabsMessage(event schema.TabsEvent) (Envelope, error) {
	tabs := event.Tree.Roots
	if tabs == nil {
		tabs = []schema.TabNode{}
	}
	return encodeEnvelope(MsgStateTabs, tabsPayload{Tabs: tabs, Active: event.Tree.Active})
}

func navMessage(event schema.NavEvent) (Envelope, error) {
	return encodeEnvelope(MsgStateNav, event.Nav)
}

func assetsMessage(defaultFavicon string) (Envelope, error) {
	return encodeEnvelope(MsgStateAssets, assetsPayload{DefaultFavicon: defaultFavicon})
}

// sidebarMessage reports the sidebar on the wire as collapsed, which is the
// inverse of the service's visibility.
func sidebarMessage(event schema.SidebarEvent) (Envelope, error) {
	return encodeEnvelope(MsgStateSidebar, sidebarState{Collapsed: !event.Visible})
}

func faviconMessage(event schema.FaviconEvent) (Envelope, error) {
	return encodeEnvelope(MsgStateFavicon, faviconPayload{IDs: event.Tabs, FaviconURI: event.URI})
}

func healthMessage(event schema.HealthEvent) (Envelope, error) {
	return encodeEnvelope(MsgStateHealth, healthPayload{
		LimitsDegraded: event.LimitsDegraded,
		Detail:         event.Detail,
	})
}

func errorMessage(reason string) (Envelope, error) {
	return encodeEnvelope(MsgError, errorPayload{Reason: reason})
}
