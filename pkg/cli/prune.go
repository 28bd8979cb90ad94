package cli

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var whitespace = regexp.MustCompile(`\s+`)

// PruneRule decides which application commands are stale.
type PruneRule struct {
	// Targets are literal command names. Multi-word targets also match their
	// underscore, hyphen and concatenated forms.
	Targets     []string
	Parents     []string
	Subcommands []string
}

// DefaultPruneRule matches the firewall/toggle commands of older releases.
func DefaultPruneRule() PruneRule {
	return PruneRule{
		Parents:     []string{"firewall", "toggle"},
		Subcommands: []string{"on", "off", "disable", "enable", "list"},
	}
}

// Match reports whether cmd should be deleted and why.
func (r PruneRule) Match(cmd *discordgo.ApplicationCommand) (bool, string) {
	if contains(r.nameVariants(), cmd.Name) {
		return true, fmt.Sprintf("literal name match (%s)", cmd.Name)
	}
	if contains(r.Parents, cmd.Name) {
		return true, fmt.Sprintf("parent command name match (%s)", cmd.Name)
	}

	for _, opt := range cmd.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionSubCommand:
			if contains(r.Subcommands, opt.Name) {
				return true, fmt.Sprintf("contains unwanted subcommand %q", opt.Name)
			}
		case discordgo.ApplicationCommandOptionSubCommandGroup:
			for _, inner := range opt.Options {
				if inner.Type == discordgo.ApplicationCommandOptionSubCommand && contains(r.Subcommands, inner.Name) {
					return true, fmt.Sprintf("contains unwanted subcommand (group) %q", inner.Name)
				}
			}
		}
	}
	return false, ""
}

func (r PruneRule) nameVariants() []string {
	var variants []string
	for _, t := range r.Targets {
		variants = append(variants,
			t,
			whitespace.ReplaceAllString(t, "_"),
			whitespace.ReplaceAllString(t, "-"),
			whitespace.ReplaceAllString(t, ""),
		)
	}
	return variants
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type pruneCandidate struct {
	cmd    *discordgo.ApplicationCommand
	reason string
}

// PruneCommandsCmd returns the command that removes stale global slash commands.
func PruneCommandsCmd() *cobra.Command {
	rule := DefaultPruneRule()

	cmd := &cobra.Command{
		Use:   "prune-commands",
		Short: "Remove old global application commands",
		Long: `Scan the application's global slash commands and delete the ones matching
the prune rule. Runs as a dry run unless --dry-run=false or DRY_RUN=false.

Secrets come from the environment (or .env):
  DISCORD_TOKEN       bot token
  DISCORD_CLIENT_ID   application id`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrune(cmd, rule)
		},
	}

	cmd.Flags().Bool("dry-run", true, "List matching commands without deleting them")
	cmd.Flags().StringSliceVar(&rule.Targets, "target", rule.Targets, "Command name to remove (repeatable)")
	cmd.Flags().StringSliceVar(&rule.Parents, "parent", rule.Parents, "Parent command name to remove (repeatable)")
	cmd.Flags().StringSliceVar(&rule.Subcommands, "subcommand", rule.Subcommands, "Remove commands containing this subcommand (repeatable)")

	return cmd
}

func runPrune(cmd *cobra.Command, rule PruneRule) error {
	loadEnv()

	token := os.Getenv("DISCORD_TOKEN")
	clientID := os.Getenv("DISCORD_CLIENT_ID")
	if token == "" || clientID == "" {
		return fmt.Errorf("missing DISCORD_TOKEN or DISCORD_CLIENT_ID in environment")
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if !cmd.Flags().Changed("dry-run") {
		dryRun = !strings.EqualFold(os.Getenv("DRY_RUN"), "false")
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	fmt.Printf("Fetching global application commands for application id: %s\n", clientID)
	existing, err := dg.ApplicationCommands(clientID, "")
	if err != nil {
		return fmt.Errorf("failed to list application commands: %w", err)
	}

	fmt.Printf("Found %d global commands. Scanning for matches...\n", len(existing))
	var flagged []pruneCandidate
	for _, c := range existing {
		if ok, reason := rule.Match(c); ok {
			flagged = append(flagged, pruneCandidate{cmd: c, reason: reason})
		}
	}

	if len(flagged) == 0 {
		fmt.Println("No matching commands found. Nothing to delete.")
		return nil
	}

	fmt.Println("Commands flagged for deletion:")
	for _, f := range flagged {
		fmt.Printf(" - %s (id: %s) %s\n", color.New(color.FgYellow).Sprint(f.cmd.Name), f.cmd.ID, f.reason)
	}

	if dryRun {
		fmt.Printf("\n%s No commands were deleted. Re-run with --dry-run=false (or DRY_RUN=false) to delete.\n",
			color.New(color.FgCyan).Sprint("DRY RUN."))
		return nil
	}

	fmt.Println("\nDeleting flagged commands...")
	failed := 0
	for _, f := range flagged {
		if err := dg.ApplicationCommandDelete(clientID, "", f.cmd.ID); err != nil {
			fmt.Printf("  %s %s (%s): %v\n", color.New(color.FgRed).Sprint("FAILED "), f.cmd.Name, f.cmd.ID, err)
			failed++
			continue
		}
		fmt.Printf("  %s %s (%s)\n", color.New(color.FgGreen).Sprint("DELETED"), f.cmd.Name, f.cmd.ID)
	}

	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d commands", failed, len(flagged))
	}
	fmt.Println("Done.")
	return nil
}
