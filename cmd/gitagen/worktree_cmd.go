package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/format"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/output"
	"github.com/gitagen/gitagen/internal/project"
	"github.com/gitagen/gitagen/internal/repo"
	"github.com/gitagen/gitagen/internal/worktree"
)

func newWorktreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worktree",
		Short:   "Manage worktrees of the current project",
		Aliases: []string{"wt"},
		GroupID: GroupWorktree,
		Long: `Manage git worktrees of the current project.

New worktrees are created under the managed directory
(~/.gitagen/worktrees/<project>/<branch> by default). Only worktrees
inside it are ever deleted from disk when a project is removed.`,
	}

	cmd.AddCommand(newWorktreeListCmd())
	cmd.AddCommand(newWorktreeAddCmd())
	cmd.AddCommand(newWorktreeRemoveCmd())
	cmd.AddCommand(newWorktreePruneCmd())

	return cmd
}

// mainRepo returns the main repository of the project, which is where
// worktree commands run even when the project path is a linked worktree.
func mainRepo(ctx context.Context, a *app, p *project.Project) (string, error) {
	return a.git.Toplevel(ctx, p.Path)
}

func newWorktreeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List worktrees",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				out := output.FromContext(ctx)

				root, err := mainRepo(ctx, a, p)
				if err != nil {
					return err
				}
				wts, err := a.worktrees.List(ctx, root)
				if err != nil {
					return err
				}

				var rows [][]string
				for _, wt := range wts {
					kind := ""
					switch {
					case wt.IsMainWorktree:
						kind = "main"
					case a.worktrees.IsManagedPath(wt.Path):
						kind = "managed"
					}
					if wt.Prunable {
						kind += " prunable"
					}
					rows = append(rows, []string{wt.Branch, format.ShortOID(wt.Head), kind, wt.Path})
				}
				return out.Table([]string{"BRANCH", "HEAD", "KIND", "PATH"}, rows, wts)
			})
		},
	}
}

func newWorktreeAddCmd() *cobra.Command {
	var (
		opts      worktree.AddOptions
		activate  bool
		noIgnores bool
	)

	cmd := &cobra.Command{
		Use:   "add [branch]",
		Short: "Create a worktree",
		Args:  cobra.MaximumNArgs(1),
		Long: `Create a worktree for an existing branch, or for a new branch with -b.

Without a branch name, -b picks "<current>-worktree" (or the next free
numbered variant). .gitignore files of the current worktree are copied
into the new one unless --no-gitignores is set.`,
		Example: `  gitagen worktree add feature-x          # Existing branch
  gitagen worktree add -b feature-y       # New branch from HEAD
  gitagen worktree add -b fix --start v1.2
  gitagen worktree add -b                 # Suggested branch name
  gitagen worktree add feature-x --use    # Make it the active worktree`,
		ValidArgsFunction: completeBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !opts.NewBranch {
				return fmt.Errorf("branch name required (or use -b for a suggested new branch)")
			}
			opts.CopyGitignores = !noIgnores

			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				out := output.FromContext(ctx)

				res, err := repo.RunMutation(ctx, a.coord, p.ID, func(ctx context.Context, _ repo.Provider, cwd string) (*worktree.AddResult, error) {
					root, err := mainRepo(ctx, a, p)
					if err != nil {
						return nil, err
					}

					branch := ""
					if len(args) == 1 {
						branch = args[0]
					} else {
						current, err := a.git.CurrentBranch(ctx, cwd)
						if err != nil {
							return nil, err
						}
						existing, err := a.git.ListBranches(ctx, root)
						if err != nil {
							return nil, err
						}
						branch = worktree.SuggestBranchName(current, existing)
					}

					if opts.SourceWorktreePath == "" {
						opts.SourceWorktreePath = cwd
					}
					return a.worktrees.Add(ctx, root, p.Name, branch, opts)
				}, repo.MutationOptions{})
				if err != nil {
					return worktreeHint(err)
				}

				if res.CopyGitignoreError != "" {
					log.FromContext(ctx).Printf("Warning: copying .gitignore files: %s\n", res.CopyGitignoreError)
				}

				if activate {
					if err := a.projects.Update(func(reg *project.Registry) error {
						return reg.SetActiveWorktree(p.ID, res.WorktreePath)
					}); err != nil {
						return err
					}
					a.coord.Invalidate(ctx, p.ID)
				}

				if out.JSON() {
					return out.PrintJSON(res)
				}
				out.Println(res.WorktreePath)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&opts.NewBranch, "new-branch", "b", false, "Create a new branch")
	cmd.Flags().StringVar(&opts.StartPoint, "start", "", "Start point of the new branch (default HEAD)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "Create the worktree here instead of the managed directory")
	cmd.Flags().BoolVar(&noIgnores, "no-gitignores", false, "Do not copy .gitignore files")
	cmd.Flags().BoolVar(&activate, "use", false, "Make the new worktree the project's active worktree")

	return cmd
}

func newWorktreeRemoveCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "remove <path>",
		Short:   "Remove a worktree",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		Long: `Remove a linked worktree. The main worktree can never be removed.

Worktrees with modified or untracked files are refused unless --force.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				_, err := repo.RunMutation(ctx, a.coord, p.ID, func(ctx context.Context, _ repo.Provider, _ string) (struct{}, error) {
					root, err := mainRepo(ctx, a, p)
					if err != nil {
						return struct{}{}, err
					}
					return struct{}{}, a.worktrees.Remove(ctx, root, path, force)
				}, repo.MutationOptions{})
				if err != nil {
					return worktreeHint(err)
				}

				// An active worktree that is gone falls back to the project path
				return a.projects.Update(func(reg *project.Registry) error {
					if filepath.Clean(reg.Prefs[p.ID].ActiveWorktreePath) == path {
						return reg.SetActiveWorktree(p.ID, "")
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove even with local changes")

	return cmd
}

func newWorktreePruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Prune records of worktrees deleted from disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				root, err := mainRepo(ctx, a, p)
				if err != nil {
					return err
				}
				before, err := a.worktrees.List(ctx, root)
				if err != nil {
					return err
				}
				if err := a.worktrees.Prune(ctx, root); err != nil {
					return err
				}
				after, err := a.worktrees.List(ctx, root)
				if err != nil {
					return err
				}
				log.FromContext(ctx).Printf("Pruned %d worktree record(s)\n", len(before)-len(after))
				return nil
			})
		},
	}
}
