package engine

import (
	"nifty-meanrev/internal/engine/engineobs"
	"nifty-meanrev/internal/interfaces"
)

// Observe wraps eng with tracing and logging.
func Observe(eng *Engine) interfaces.Engine {
	return engineobs.Wrap(eng)
}
