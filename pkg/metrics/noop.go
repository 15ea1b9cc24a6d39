package metrics

// Noop discards all measurements.
type Noop struct{}

func (Noop) RecordDroppedBar(string)       {}
func (Noop) RecordOverlayOp(string)        {}
func (Noop) RecordPayload(string)          {}
func (Noop) RecordSessions(int)            {}
func (Noop) RecordLatency(string, float64) {}
