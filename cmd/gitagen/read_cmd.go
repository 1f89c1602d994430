package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/format"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/output"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show working tree status",
		Aliases: []string{"st"},
		GroupID: GroupRead,
		Args:    cobra.NoArgs,
		Long: `Show staged, unstaged and untracked changes of the project.

The result is served from the cache while the repository fingerprint
(HEAD, index, working tree status) is unchanged.`,
		Example: `  gitagen status              # Current project
  gitagen status -p api       # Project named "api"
  gitagen status --json       # Output as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				p, err := a.currentProject(workDir)
				if err != nil {
					return err
				}
				st, err := a.reader.GetOrFetchStatus(ctx, p.ID)
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(st)
				}

				if st.Branch != "" {
					out.Printf("On branch %s\n", st.Branch)
				}
				if st.Clean() {
					out.Println("nothing to commit, working tree clean")
					return nil
				}

				var rows [][]string
				for _, bucket := range []struct {
					name    string
					changes []git.FileChange
				}{
					{"staged", st.Staged},
					{"unstaged", st.Unstaged},
					{"untracked", st.Untracked},
				} {
					for _, c := range bucket.changes {
						path := c.Path
						if c.OldPath != "" {
							path = c.OldPath + " -> " + c.Path
						}
						rows = append(rows, []string{bucket.name, c.ChangeType, path})
					}
				}
				out.Print(output.RenderTable([]string{"SCOPE", "CHANGE", "PATH"}, rows))
				return nil
			})
		},
	}
}

func newTreeCmd() *cobra.Command {
	var (
		ignored bool
		changed bool
	)

	cmd := &cobra.Command{
		Use:     "tree",
		Short:   "List files in the working tree",
		GroupID: GroupRead,
		Args:    cobra.NoArgs,
		Example: `  gitagen tree                # Tracked and untracked files
  gitagen tree --changed      # Only files with changes
  gitagen tree --ignored      # Include ignored files`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				p, err := a.currentProject(workDir)
				if err != nil {
					return err
				}
				entries, err := a.reader.GetOrFetchTree(ctx, p.ID, ignored, changed)
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(entries)
				}
				for _, e := range entries {
					mark := e.Status
					if e.Ignored {
						mark = "ignored"
					}
					out.Printf("%-10s %s\n", mark, e.Path)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&ignored, "ignored", false, "Include ignored files")
	cmd.Flags().BoolVar(&changed, "changed", false, "Only list changed files")

	return cmd
}

func newDiffCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:     "diff <file>",
		Short:   "Show the patch of a single file",
		GroupID: GroupRead,
		Args:    cobra.ExactArgs(1),
		Long: `Show the patch of one file for a status scope.

Scopes: staged (index vs HEAD), unstaged (working tree vs index),
untracked (whole file as added).`,
		Example: `  gitagen diff main.go                  # Unstaged changes
  gitagen diff main.go --scope staged   # Staged changes
  gitagen diff new.txt --scope untracked`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			s := git.PatchScope(scope)
			if !s.Valid() {
				return fmt.Errorf("invalid scope %q (want staged, unstaged or untracked)", scope)
			}

			return withApp(ctx, func(a *app) error {
				p, err := a.currentProject(workDir)
				if err != nil {
					return err
				}
				patch, err := a.reader.GetOrFetchPatch(ctx, p.ID, args[0], s)
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(map[string]string{"file": args[0], "scope": scope, "patch": patch})
				}
				out.Print(patch)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", string(git.ScopeUnstaged), "Scope: staged, unstaged, untracked")
	cmd.RegisterFlagCompletionFunc("scope", cobra.FixedCompletions(
		[]string{string(git.ScopeStaged), string(git.ScopeUnstaged), string(git.ScopeUntracked)},
		cobra.ShellCompDirectiveNoFileComp,
	))

	return cmd
}

func newLogCmd() *cobra.Command {
	var opts git.LogOptions

	cmd := &cobra.Command{
		Use:     "log",
		Short:   "Show the commit log",
		GroupID: GroupRead,
		Args:    cobra.NoArgs,
		Long: `Show commits reachable from HEAD or --branch.

Commits not yet pushed to the upstream are marked with "↑". The first
page of HEAD's log is cached until HEAD moves.`,
		Example: `  gitagen log                       # Latest commits
  gitagen log --limit 20 --offset 20 # Second page of 20
  gitagen log --branch main`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				p, err := a.currentProject(workDir)
				if err != nil {
					return err
				}
				res, err := a.reader.GetOrFetchLog(ctx, p.ID, opts)
				if err != nil {
					return err
				}
				if out.JSON() {
					return out.PrintJSON(res)
				}

				var rows [][]string
				for _, c := range res.Commits {
					mark := ""
					if slices.Contains(res.UnpushedOIDs, c.OID) {
						mark = "↑"
					}
					rows = append(rows, []string{mark, format.ShortOID(c.OID), format.RelativeTime(c.Date), c.Author, c.Subject})
				}
				if len(rows) == 0 {
					out.Println("No commits")
					return nil
				}
				out.Print(output.RenderTable([]string{"", "COMMIT", "DATE", "AUTHOR", "SUBJECT"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Branch, "branch", "b", "", "Branch or ref to list (default HEAD)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", git.DefaultLogLimit, "Number of commits")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Commits to skip")

	return cmd
}
