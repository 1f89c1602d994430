package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/config"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/output"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOutput bool
	showEvents bool
	projectRef string

	// Shared state injected into commands
	cfg     *config.Config
	workDir string
)

// Command group IDs for organizing help output
const (
	GroupRead     = "read"
	GroupMutate   = "mutate"
	GroupWorktree = "worktree"
	GroupProject  = "project"
	GroupUtility  = "utility"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitagen",
	Short: "Cached git state and worktree management for your projects",
	Long: `gitagen keeps a fingerprint-validated cache of git state (status, file
tree, patches, commit log) for registered projects, invalidates it around
every mutating git command, and manages git worktrees.

Commands act on the project containing the current directory, or on the
project named with --project.`,
	SilenceUsage:               true,
	SilenceErrors:              true,
	SuggestionsMinimumDistance: 2,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "help" {
			return nil
		}

		// Rebuild logger and printer now that flags are parsed
		ctx := cmd.Context()
		ctx = log.WithLogger(ctx, log.New(os.Stderr, verbose, quiet))
		ctx = output.WithPrinter(ctx, output.New(os.Stdout, jsonOutput))
		cmd.SetContext(ctx)

		return git.CheckGit(ctx)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	loadedCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	cfg = &loadedCfg

	workDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gitagen: failed to get working directory: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ctx = log.WithLogger(ctx, log.New(os.Stderr, false, false))
	ctx = output.WithPrinter(ctx, output.New(os.Stdout, false))
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Run 'gitagen -h' for help")
		cancel()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show external commands being executed")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&showEvents, "events", false, "Print repository events to stderr")
	rootCmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "", "Project id, name or path (default: project containing the current directory)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
	rootCmd.RegisterFlagCompletionFunc("project", completeProjectNames)

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddGroup(
		&cobra.Group{ID: GroupRead, Title: "Read Commands:"},
		&cobra.Group{ID: GroupMutate, Title: "Git Commands:"},
		&cobra.Group{ID: GroupWorktree, Title: "Worktree Commands:"},
		&cobra.Group{ID: GroupProject, Title: "Project Commands:"},
		&cobra.Group{ID: GroupUtility, Title: "Utility Commands:"},
	)

	// Read commands
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newDiffCmd())
	rootCmd.AddCommand(newLogCmd())

	// Git commands
	for _, c := range newMutationCmds() {
		rootCmd.AddCommand(c)
	}

	// Worktree commands
	rootCmd.AddCommand(newWorktreeCmd())

	// Project commands
	rootCmd.AddCommand(newProjectCmd())
	rootCmd.AddCommand(newGroupCmd())

	// Utility commands
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
}
