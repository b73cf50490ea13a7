package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/sitegraph/cmd/sitegraph/commands"
	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("sitegraph"),
		kong.Description("Incremental static site builder"),
		kong.UsageOnError(),
	)

	global := &commands.Global{Out: os.Stdout}
	err := parser.Run(global, cli)
	foundationerrors.NewCLIErrorAdapter(cli.Verbose, nil).HandleError(err)
}
