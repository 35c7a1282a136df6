package shroudlib

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
)

// hashIP хэширует IP-адрес для записи в логи. Первые 12 hex символов
// truncated SHA-256 достаточно для корреляции записей, но не позволяют
// восстановить адрес клиента.
func hashIP(ip net.IP) string {
	h := sha256.Sum256(ip)

	return hex.EncodeToString(h[:6])
}

// remoteIP extracts an IP address of a peer. Non-TCP addresses (pipes in
// tests, for example) are parsed from their string form.
func remoteIP(addr net.Addr) net.IP {
	if tcpAddr, ok := addr.(*net.TCPAddr); ok {
		return tcpAddr.IP
	}

	if addr == nil {
		return net.IPv4zero
	}

	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip
	}

	return net.IPv4zero
}
