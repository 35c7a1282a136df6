package ipblocklist

import (
	"net"
	"time"

	"github.com/akab00m/shroud/shroudlib"
)

type noop struct{}

func (n noop) Contains(_ net.IP) bool { return false }
func (n noop) Run(_ time.Duration) {}
func (n noop) Shutdown() {}

// NewNoop returns a dummy ipblocklist which allows all incoming
// connections.
func NewNoop() shroudlib.IPBlocklist {
	return noop{}
}
