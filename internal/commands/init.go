package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/arborist-dev/arb/internal/arbroot"
)

// Init handles `arb init`: creates the .arb/ root layout in the given
// directory (default: cwd).
func Init(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := "."
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	if err := arbroot.InitRoot(dir); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", labelStyle.Render("Initialized arb root:"), valueStyle.Render(dir))
	fmt.Fprintln(os.Stderr, hintStyle.Render("Next: arb repo clone <url>"))
	return nil
}
