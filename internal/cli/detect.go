package cli

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

// Detect runs a single round of network condition detection and prints
// what the orchestrator would do on this network.
type Detect struct {
	ConfigFlag `kong:"embed"`
}

type detectOutput struct {
	Condition     shroudlib.NetworkCondition `json:"condition"`
	Strategy      shroudlib.Strategy         `json:"strategy"`
	FallbackChain []shroudlib.Strategy       `json:"fallback_chain"`
	Detection     shroudlib.DetectionResult  `json:"detection"`
}

func (d *Detect) Run(cli *CLI, version string) error {
	conf, err := readOptionalConfig(d.ConfigPath)
	if err != nil {
		return err
	}

	ntw, err := makeNetwork(conf, version)
	if err != nil {
		return fmt.Errorf("cannot build network: %w", err)
	}

	defer ntw.Stop()

	orchestrator, err := makeLocalOrchestrator(conf, ntw)
	if err != nil {
		return err
	}

	orchestrator.Start()
	orchestrator.Shutdown()

	state := orchestrator.State()

	return printJSON(stdout, detectOutput{
		Condition:     state.NetworkCondition,
		Strategy:      state.ActiveStrategy,
		FallbackChain: shroudlib.FallbackChain(state.NetworkCondition),
		Detection:     orchestrator.LastDetection(),
	})
}
