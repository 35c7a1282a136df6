package antireplay

import "github.com/akab00m/shroud/shroudlib"

type noop struct{}

func (n noop) SeenBefore(_ []byte) bool { return false }

// NewNoop returns an implementation that never sees any digest.
func NewNoop() shroudlib.AntiReplayCache {
	return noop{}
}
