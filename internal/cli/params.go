package cli

import (
	"fmt"

	"github.com/akab00m/shroud/shroudlib"
)

// Params prints connection parameters of an external proxy engine for a
// given strategy. If strategy is omitted, the one which the orchestrator
// picks for a condition is used.
type Params struct {
	ConfigFlag `kong:"embed"`

	Strategy  string `kong:"arg,optional,help='Strategy name like reality-vision or splithttp-cdn.'"`
	Condition string `kong:"name='condition',default='normal',help='Network condition to plan for.'"`
}

func (p *Params) Run(cli *CLI, version string) error {
	conf, err := readOptionalConfig(p.ConfigPath)
	if err != nil {
		return err
	}

	if err := conf.Evasion.ForceCondition.Set(p.Condition); err != nil {
		return fmt.Errorf("incorrect condition: %w", err)
	}

	orchestrator, err := makeLocalOrchestrator(conf, nil)
	if err != nil {
		return err
	}

	strategy := orchestrator.GetOptimalStrategy()

	if p.Strategy != "" {
		strategy, err = shroudlib.ParseStrategy(p.Strategy)
		if err != nil {
			return fmt.Errorf("incorrect strategy: %w", err)
		}
	}

	return printJSON(stdout, orchestrator.BuildConnectionParams(strategy))
}
