package search

import (
	"log/slog"

	"github.com/poiesic/ragline/core"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to trace which strategy answered a query.
type Monitor interface {
	Start(query string)
	StrategyMissed(strategy string, reason string)
	StrategyHit(strategy string, passages []core.Passage)
	Finish(passages []core.Passage)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) StrategyMissed(_ string, _ string)      {}
func (n *noopMonitor) StrategyHit(_ string, _ []core.Passage) {}
func (n *noopMonitor) Finish(_ []core.Passage)                {}

// LogMonitor reports retrieval steps at debug level.
type LogMonitor struct {
	Logger *slog.Logger
}

var _ Monitor = (*LogMonitor)(nil)

func (l *LogMonitor) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l *LogMonitor) Start(query string) {
	l.logger().Debug("retrieval started", "query", query)
}

func (l *LogMonitor) StrategyMissed(strategy string, reason string) {
	l.logger().Debug("strategy missed", "strategy", strategy, "reason", reason)
}

func (l *LogMonitor) StrategyHit(strategy string, passages []core.Passage) {
	l.logger().Debug("strategy hit", "strategy", strategy, "passages", len(passages))
}

func (l *LogMonitor) Finish(passages []core.Passage) {
	l.logger().Debug("retrieval finished", "passages", len(passages))
}
