package netcond

import (
	"fmt"
	"net"

	"github.com/yl2chen/cidranger"
)

const (
	NetworkTypeMobile  = "mobile"
	NetworkTypeFixed   = "fixed"
	NetworkTypeUnknown = "unknown"

	ISPUnknown = "unknown"
)

// ISP is a national ISP prefix.
type ISP struct {
	CIDR        string `json:"cidr"`
	Name        string `json:"name"`
	NetworkType string `json:"network_type"`
}

// DefaultISPTable is an approximate table of large national ISP ranges.
var DefaultISPTable = []ISP{
	{CIDR: "2.176.0.0/12", Name: "TCI", NetworkType: NetworkTypeFixed},
	{CIDR: "78.38.0.0/15", Name: "TCI", NetworkType: NetworkTypeFixed},
	{CIDR: "5.112.0.0/12", Name: "MCI", NetworkType: NetworkTypeMobile},
	{CIDR: "83.120.0.0/14", Name: "MCI", NetworkType: NetworkTypeMobile},
	{CIDR: "5.208.0.0/12", Name: "Irancell", NetworkType: NetworkTypeMobile},
	{CIDR: "151.232.0.0/13", Name: "Irancell", NetworkType: NetworkTypeMobile},
	{CIDR: "46.100.0.0/16", Name: "Rightel", NetworkType: NetworkTypeMobile},
	{CIDR: "91.98.0.0/15", Name: "ParsOnline", NetworkType: NetworkTypeFixed},
	{CIDR: "5.200.64.0/18", Name: "Shatel", NetworkType: NetworkTypeFixed},
	{CIDR: "85.185.0.0/16", Name: "Asiatech", NetworkType: NetworkTypeFixed},
}

type ispEntry struct {
	ipNet net.IPNet
	isp   ISP
}

func (i ispEntry) Network() net.IPNet {
	return i.ipNet
}

type ispTable struct {
	ranger cidranger.Ranger
}

// Lookup returns the most specific ISP which covers ip.
func (t ispTable) Lookup(ip net.IP) (ISP, bool) {
	if ip == nil {
		return ISP{}, false
	}

	entries, err := t.ranger.ContainingNetworks(ip)
	if err != nil || len(entries) == 0 {
		return ISP{}, false
	}

	// entries are sorted from the shortest prefix to the longest one
	return entries[len(entries)-1].(ispEntry).isp, true //nolint: forcetypeassert
}

func newISPTable(isps []ISP) (ispTable, error) {
	ranger := cidranger.NewPCTrieRanger()

	for _, isp := range isps {
		_, ipNet, err := net.ParseCIDR(isp.CIDR)
		if err != nil {
			return ispTable{}, fmt.Errorf("incorrect ISP network %s: %w", isp.CIDR, err)
		}

		if err := ranger.Insert(ispEntry{ipNet: *ipNet, isp: isp}); err != nil {
			return ispTable{}, fmt.Errorf("cannot insert ISP network %s: %w", isp.CIDR, err)
		}
	}

	return ispTable{ranger: ranger}, nil
}
