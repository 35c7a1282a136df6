// Package ipblocklist contains implementations of
// [shroudlib.IPBlocklist].
//
// A blocklist is used twice: a gateway drops connections of listed
// addresses and a probe defender treats them as known censor probers.
package ipblocklist

import "time"

const (
	// DefaultFireholDownloadConcurrency defines a default max number of
	// concurrent downloads of ip blocklists.
	DefaultFireholDownloadConcurrency = 2

	// DefaultFireholUpdateEach defines how often blocklists are
	// refreshed.
	DefaultFireholUpdateEach = 6 * time.Hour

	fireholIPv4DefaultCIDR = 32
	fireholIPv6DefaultCIDR = 128
)
