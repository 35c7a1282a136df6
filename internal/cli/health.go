package cli

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/akab00m/shroud/internal/utils"
)

// healthCheckTimeout is short enough for docker HEALTHCHECK not to pile
// up checks.
const healthCheckTimeout = 5 * time.Second

// Health checks a gateway. If prometheus is enabled, its endpoint has to
// answer 200 OK. Otherwise a TCP port of the gateway has to accept a
// connection.
type Health struct {
	ConfigPath string `kong:"arg,required,type='existingfile',help='Path to config file.',name='config-path'"` //nolint: lll
}

func (h *Health) Run(cli *CLI, version string) error {
	conf, err := utils.ReadConfig(h.ConfigPath)
	if err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}

	if conf.Stats.Prometheus.Enabled.Get(false) {
		return checkHTTP(healthURL(conf.Stats.Prometheus.BindTo.Get(""),
			conf.Stats.Prometheus.HTTPPath.Get("/")))
	}

	return checkTCP(localAddress(conf.BindTo.Get("")))
}

// localAddress replaces a wildcard host with a loopback one: a gateway
// which listens on 0.0.0.0 is reachable via 127.0.0.1.
func localAddress(bindTo string) string {
	host, port, err := net.SplitHostPort(bindTo)
	if err != nil {
		return bindTo
	}

	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}

func healthURL(bindTo, httpPath string) string {
	return "http://" + localAddress(bindTo) + httpPath
}

func checkHTTP(url string) error {
	client := &http.Client{
		Timeout: healthCheckTimeout,
	}

	resp, err := client.Get(url) //nolint: noctx
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body) //nolint: errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	return nil
}

func checkTCP(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, healthCheckTimeout)
	if err != nil {
		return fmt.Errorf("health check TCP connect failed: %w", err)
	}

	conn.Close()

	return nil
}
