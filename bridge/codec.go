package bridge

import (
	"encoding/json"

	"pkt.systems/owlcore/schema"
)

// SchemaVersion is the bridge wire version. Every envelope carries it; a
// mismatch is rejected before the payload is looked at.
const SchemaVersion = 1

// Envelope frames every message in both directions as a single JSON line.
type Envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Inbound message types, sent by the UI shell.
const (
	MsgUIReady       = "ui.ready"
	MsgTabSelect     = "tab.select"
	MsgTabToggle     = "tab.toggle"
	MsgTabPin        = "tab.pin"
	MsgTabMute       = "tab.mute"
	MsgTabUnload     = "tab.unload"
	MsgTabCreate     = "tab.create"
	MsgTabClose      = "tab.close"
	MsgTabReopen     = "tab.reopen"
	MsgNavGo         = "nav.go"
	MsgNavBack       = "nav.back"
	MsgNavForward    = "nav.forward"
	MsgNavReload     = "nav.reload"
	MsgNavStop       = "nav.stop"
	MsgNavHome       = "nav.home"
	MsgSidebarToggle = "ui.sidebar.toggle"
)

// Outbound message types, sent to the UI shell.
const (
	MsgStateTabs    = "state.tabs"
	MsgStateNav     = "state.nav"
	MsgStateAssets  = "state.assets"
	MsgStateSidebar = "state.sidebar"
	MsgStateFavicon = "state.favicon"
	MsgStateHealth  = "state.health"
	MsgError        = "error"
)

// tabRef is the payload of inbound messages addressing a single tab.
type tabRef struct {
	ID schema.TabID `json:"id"`
}

// navTarget is the payload of nav.go.
type navTarget struct {
	URL string `json:"url"`
}

// createPayload is the optional payload of tab.create.
type createPayload struct {
	URL    string       `json:"url,omitempty"`
	Parent schema.TabID `json:"parent,omitempty"`
	Group  bool         `json:"group,omitempty"`
}

// sidebarPayload is the payload of ui.sidebar.toggle. A collapsed field
// requests that exact state; without it the daemon toggles.
type sidebarPayload struct {
	Collapsed *bool `json:"collapsed,omitempty"`
}

// decodeEnvelope parses one wire line. Malformed JSON, a version mismatch,
// or a missing type all yield a ProtocolError; unknown types pass through
// for the caller to ignore.
func decodeEnvelope(line []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Envelope{}, protocolErrorf("malformed message: %v", err)
	}
	if env.SchemaVersion != SchemaVersion {
		return Envelope{}, protocolErrorf("unsupported schema_version %d", env.SchemaVersion)
	}
	if env.Type == "" {
		return Envelope{}, protocolErrorf("missing message type")
	}
	return env, nil
}

// decodePayload parses the payload of an already-validated envelope.
func decodePayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return protocolErrorf("bad %s payload: %v", env.Type, err)
	}
	return nil
}

// encodeEnvelope builds an outbound envelope around an already-serializable
// payload.
func encodeEnvelope(msgType string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{SchemaVersion: SchemaVersion, Type: msgType, Payload: raw}, nil
}
