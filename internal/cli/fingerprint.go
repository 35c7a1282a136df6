package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/akab00m/shroud/internal/config"
	"github.com/akab00m/shroud/shroudlib"
)

// Fingerprint prints a TLS fingerprint of a browser profile and a
// ClientHello built from it.
type Fingerprint struct {
	Profile    string `kong:"name='profile',short='p',default='random',help='Browser profile: chrome, firefox, safari, ios, edge, android or random.'"` //nolint: lll
	ServerName string `kong:"name='server-name',short='s',default='www.microsoft.com',help='SNI of ClientHello.'"`                                        //nolint: lll
	NoH2       bool   `kong:"name='no-h2',help='Do not advertise HTTP/2 in ALPN.'"`
	Seed       int64  `kong:"name='seed',help='Fix randomness.'"`
}

type fingerprintOutput struct {
	Fingerprint shroudlib.Fingerprint `json:"fingerprint"`
	JA3         string                `json:"ja3"`
	ClientHello string                `json:"client_hello"`
}

func (f *Fingerprint) Run(cli *CLI, version string) error {
	conf := &config.Config{}
	conf.Evasion.Seed = f.Seed

	if err := conf.Evasion.BrowserProfile.Set(f.Profile); err != nil {
		return fmt.Errorf("incorrect profile: %w", err)
	}

	orchestrator, err := makeLocalOrchestrator(conf, nil)
	if err != nil {
		return err
	}

	fp := orchestrator.Fingerprint(!f.NoH2)

	return printJSON(stdout, fingerprintOutput{
		Fingerprint: fp,
		JA3:         fp.JA3String(),
		ClientHello: hex.EncodeToString(orchestrator.ClientHello(f.ServerName)),
	})
}
