package commands

import "fmt"

// ConfigHashCmd implements the 'config-hash' command.
type ConfigHashCmd struct{}

func (c *ConfigHashCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(g.out(), cfg.Hash())
	return err
}
