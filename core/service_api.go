package core

import (
	"context"

	"pkt.systems/owlcore/schema"
)

// Service is the transport-agnostic API for managing the tab tree, tab
// engine processes and their scheduling.
type Service interface {
	CreateTab(ctx context.Context, req schema.CreateTabRequest) (schema.CreateTabResponse, error)
	CloseTab(ctx context.Context, req schema.CloseTabRequest) (schema.CloseTabResponse, error)
	SelectTab(ctx context.Context, req schema.SelectTabRequest) (schema.SelectTabResponse, error)
	MoveTab(ctx context.Context, req schema.MoveTabRequest) (schema.MoveTabResponse, error)
	SetFlag(ctx context.Context, req schema.SetFlagRequest) (schema.SetFlagResponse, error)
	DiscardTab(ctx context.Context, req schema.DiscardTabRequest) (schema.DiscardTabResponse, error)
	ReopenTab(ctx context.Context, req schema.ReopenTabRequest) (schema.ReopenTabResponse, error)
	Navigate(ctx context.Context, req schema.NavigateRequest) error
	NavAction(ctx context.Context, req schema.NavActionRequest) error
	Signal(ctx context.Context, req schema.SignalRequest) error
	ReportPressure(ctx context.Context, req schema.PressureRequest) error
	ToggleSidebar(ctx context.Context, req schema.SidebarToggleRequest) (schema.SidebarToggleResponse, error)
	Tree(ctx context.Context, req schema.TreeRequest) (schema.TreeResponse, error)
	State(ctx context.Context, req schema.StateRequest) (schema.StateResponse, error)
	// Recompute re-evaluates scheduling classes against the clock. The
	// compositor calls it periodically so grace and discard deadlines fire
	// without an external signal.
	Recompute(ctx context.Context) error
	// Close stops every tab engine and releases limiter resources.
	Close(ctx context.Context) error
}
