package main

import (
	"fmt"
	"log"
	"os"

	"github.com/arborist-dev/arb/internal/commands"
)

const version = "0.1.0"

func main() {
	log.SetFlags(0)

	args := os.Args[1:]
	if len(args) > 0 && (args[0] == "-v" || args[0] == "--version") {
		fmt.Println("arb " + version)
		return
	}

	g, rest := commands.ParseGlobals(args)
	if len(rest) == 0 {
		fmt.Print(commands.Usage)
		os.Exit(1)
	}

	subcmd, cmdArgs := rest[0], rest[1:]

	var err error
	switch subcmd {
	case "init":
		err = commands.Init(cmdArgs)
	case "repo":
		err = commands.Repo(g, cmdArgs)
	case "create":
		err = commands.Create(g, cmdArgs)
	case "delete":
		err = commands.Delete(g, cmdArgs)
	case "clean":
		err = commands.Clean(g, cmdArgs)
	case "list":
		err = commands.List(g, cmdArgs)
	case "path":
		err = commands.Path(g, cmdArgs)
	case "cd":
		err = commands.Cd(g, cmdArgs)
	case "attach":
		err = commands.Attach(g, cmdArgs)
	case "detach":
		err = commands.Detach(g, cmdArgs)
	case "status":
		err = commands.Status(g, cmdArgs)
	case "branch":
		err = commands.Branch(g, cmdArgs)
	case "log":
		err = commands.Log(g, cmdArgs)
	case "diff":
		err = commands.Diff(g, cmdArgs)
	case "pull":
		err = commands.Pull(g, cmdArgs)
	case "push":
		err = commands.Push(g, cmdArgs)
	case "rebase":
		err = commands.Rebase(g, cmdArgs)
	case "merge":
		err = commands.Merge(g, cmdArgs)
	case "exec":
		err = commands.Exec(g, cmdArgs)
	case "open":
		err = commands.Open(g, cmdArgs)
	case "template":
		err = commands.Template(g, cmdArgs)
	case "help", "-h", "--help":
		err = commands.Help(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", subcmd)
		fmt.Print(commands.Usage)
		os.Exit(1)
	}

	if err != nil {
		if commands.IsExitCodeError(err) {
			os.Exit(commands.ExitCode(err))
		}
		fmt.Fprintf(os.Stderr, "arb %s: %v\n", subcmd, err)
		os.Exit(commands.ExitCode(err))
	}
}
