package probe

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akab00m/shroud/shroudlib/internal/tlshello"
)

// DefaultFallbackPage is served to HTTP probes if nothing else is
// configured.
const DefaultFallbackPage = `<!DOCTYPE html>
<html>
<head>
<title>Welcome to nginx!</title>
<style>
html { color-scheme: light dark; }
body { width: 35em; margin: 0 auto;
font-family: Tahoma, Verdana, Arial, sans-serif; }
</style>
</head>
<body>
<h1>Welcome to nginx!</h1>
<p>If you see this page, the nginx web server is successfully installed and
working. Further configuration is required.</p>

<p>For online documentation and support please refer to
<a href="http://nginx.org/">nginx.org</a>.<br/>
Commercial support is available at
<a href="http://nginx.com/">nginx.com</a>.</p>

<p><em>Thank you for using nginx.</em></p>
</body>
</html>
`

// FallbackResponse returns bytes which have to be written to a probe
// before closing a connection. HTTP probes get a regular web page,
// everything else gets a TLS handshake_failure alert.
func (d *Defender) FallbackResponse(t Type) []byte {
	if !t.IsHTTP() {
		return tlshello.AlertHandshakeFailure()
	}

	builder := strings.Builder{}

	builder.WriteString("HTTP/1.1 200 OK\r\n")
	builder.WriteString("Server: nginx\r\n")
	builder.WriteString("Date: " + time.Now().UTC().Format(http.TimeFormat) + "\r\n")
	builder.WriteString("Content-Type: text/html\r\n")
	builder.WriteString("Content-Length: " + strconv.Itoa(len(d.fallbackPage)) + "\r\n")
	builder.WriteString("Connection: close\r\n")
	builder.WriteString("\r\n")
	builder.Write(d.fallbackPage)

	return []byte(builder.String())
}
