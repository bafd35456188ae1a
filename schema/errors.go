package schema

import "errors"

// ErrTabNotFound indicates the referenced tab does not exist or was closed.
var ErrTabNotFound = errors.New("tab not found")

// ErrInvalidMove indicates a reparent that would detach a node into its own
// subtree or otherwise create a cycle.
var ErrInvalidMove = errors.New("invalid move")

// ErrIsGroup indicates a leaf-only operation was applied to a group node.
var ErrIsGroup = errors.New("tab is a group")

// ErrTabLimit indicates the concurrent tab process cap was reached.
var ErrTabLimit = errors.New("tab limit reached")

// ErrSpawnTimeout indicates the engine process did not become ready within
// the configured spawn deadline.
var ErrSpawnTimeout = errors.New("spawn timed out")

// ErrEngineGone indicates the tab's engine process exited or crashed and the
// operation cannot be delivered.
var ErrEngineGone = errors.New("engine gone")

// ErrProtocol indicates a malformed or version-incompatible bridge message.
var ErrProtocol = errors.New("protocol error")

// ErrServerClosed is returned by Wait after a clean shutdown.
var ErrServerClosed = errors.New("server closed")
