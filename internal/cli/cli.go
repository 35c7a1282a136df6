package cli

import "github.com/alecthomas/kong"

type CLI struct {
	Run         Run              `kong:"cmd,help='Run a gateway which hides a backend from active probes.'"`
	Detect      Detect           `kong:"cmd,help='Detect a condition of the current network.'"`
	Fingerprint Fingerprint      `kong:"cmd,help='Print a browser TLS fingerprint.'"`
	Params      Params           `kong:"cmd,help='Print connection parameters of a strategy.'"`
	Prioritize  Prioritize       `kong:"cmd,help='Sort proxy URIs by fitness for a strategy.'"`
	Health      Health           `kong:"cmd,help='Check gateway health via metrics endpoint.'"`
	Version     kong.VersionFlag `kong:"help='Print version.',short='v'"`
}

// ConfigFlag is an optional config for commands which work without a
// running gateway.
type ConfigFlag struct {
	ConfigPath string `kong:"name='config',short='c',type='existingfile',help='Path to config file.'"` //nolint: lll
}
