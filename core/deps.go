package core

import "pkt.systems/pslog"

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	Engine    Engine
	Limiter   Limiter
	EventSink EventSink
	Logger    pslog.Logger
}
