package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akab00m/shroud/events"
	"github.com/akab00m/shroud/internal/config"
	"github.com/akab00m/shroud/internal/utils"
	"github.com/akab00m/shroud/logger"
	"github.com/akab00m/shroud/shroudlib"
)

// readOptionalConfig returns an empty config if no path is given. Such
// config is not validated: commands which use it do not bind anything.
func readOptionalConfig(path string) (*config.Config, error) {
	if path == "" {
		return &config.Config{}, nil
	}

	conf, err := utils.ReadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("cannot init config: %w", err)
	}

	return conf, nil
}

// makeLocalOrchestrator builds an orchestrator which reports nothing. It
// is used by commands which print something and exit.
func makeLocalOrchestrator(conf *config.Config, ntw shroudlib.Network) (*shroudlib.Orchestrator, error) {
	opts, err := makeOrchestratorOpts(conf)
	if err != nil {
		return nil, err
	}

	opts.Logger = logger.NewNoopLogger()
	opts.EventStream = events.NewNoopStream()
	opts.Network = ntw

	orchestrator, err := shroudlib.NewOrchestrator(opts)
	if err != nil {
		return nil, fmt.Errorf("cannot create orchestrator: %w", err)
	}

	return orchestrator, nil
}

func printJSON(writer io.Writer, value interface{}) error {
	encoder := json.NewEncoder(writer)

	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("cannot encode output: %w", err)
	}

	return nil
}

var stdout io.Writer = os.Stdout
