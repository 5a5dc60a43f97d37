package commands

import "fmt"

// Usage is the top-level command listing printed by `arb help` and on
// argument errors.
const Usage = `arb — workspace manager for parallel git worktrees across multiple repos

Usage:
  arb init [dir]
  arb repo clone <url> | arb repo list
  arb create [--branch <branch>] [--base <base>] <name>
  arb delete [mutation flags] <name>
  arb clean
  arb list
  arb path [name]
  arb cd <name>
  arb attach [mutation flags] <repo>...
  arb detach [mutation flags] <repo>...
  arb status [--where <filter>]
  arb branch
  arb branch rename [--delete-remote] [mutation flags] <new-name>
  arb branch continue
  arb branch abort
  arb log [repo] [-- git-log-args...]
  arb diff [repo] [-- git-diff-args...]
  arb pull [--rebase | --merge] [mutation flags]
  arb push [mutation flags]
  arb rebase [--retarget | --retarget-to <branch>] [mutation flags]
  arb merge [--retarget | --retarget-to <branch>] [mutation flags]
  arb exec -- <command> [args...]
  arb open [repo]
  arb template add|remove|list|diff|apply
  arb help [topic]

Global flags: -C <dir>, -v/--version, --debug
Command flags go before the command's positional arguments.
Mutation flags: -y/--yes, -f/--force, -n/--dry-run, --fetch/-N/--no-fetch, --autostash, -w/--where <filter>, -d/--dirty
`

// Help handles `arb help [topic]`.
func Help(args []string) error {
	fmt.Print(Usage)
	return nil
}
