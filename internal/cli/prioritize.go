package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akab00m/shroud/shroudlib"
)

// Prioritize reads proxy URIs (vless://, vmess://, trojan://, ...) and
// prints them sorted by how well they fit a strategy.
type Prioritize struct {
	Strategy string   `kong:"name='strategy',short='s',required,help='Strategy name.'"`
	URIs     []string `kong:"arg,optional,help='Proxy URIs. If omitted, they are read from stdin line by line.'"` //nolint: lll
	Scores   bool     `kong:"name='scores',help='Print a score before each URI.'"`
}

func (p *Prioritize) Run(cli *CLI, version string) error {
	strategy, err := shroudlib.ParseStrategy(p.Strategy)
	if err != nil {
		return fmt.Errorf("incorrect strategy: %w", err)
	}

	uris := p.URIs

	if len(uris) == 0 {
		if uris, err = readLines(os.Stdin); err != nil {
			return err
		}
	}

	for _, uri := range shroudlib.PrioritizeURIs(strategy, uris) {
		if p.Scores {
			fmt.Fprintf(stdout, "%.2f\t%s\n", shroudlib.ScoreURIFor(strategy, uri), uri)
		} else {
			fmt.Fprintln(stdout, uri)
		}
	}

	return nil
}

func readLines(reader io.Reader) ([]string, error) {
	rv := []string{}
	scanner := bufio.NewScanner(reader)

	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint: gomnd

	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, "#") {
			rv = append(rv, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read uris: %w", err)
	}

	return rv, nil
}
