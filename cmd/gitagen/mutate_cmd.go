package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/format"
	"github.com/gitagen/gitagen/internal/output"
	"github.com/gitagen/gitagen/internal/project"
)

// onProject runs fn for the current project with an opened app.
func onProject(cmd *cobra.Command, fn func(ctx context.Context, a *app, p *project.Project) error) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app) error {
		p, err := a.currentProject(workDir)
		if err != nil {
			return err
		}
		return fn(ctx, a, p)
	})
}

func newMutationCmds() []*cobra.Command {
	return []*cobra.Command{
		newStageCmd(),
		newUnstageCmd(),
		newDiscardCmd(),
		newCommitCmd(),
		newCheckoutCmd(),
		newBranchCmd(),
		newStashCmd(),
		newFetchCmd(),
		newPullCmd(),
		newPushCmd(),
		newMergeCmd(),
		newRebaseCmd(),
		newCherryPickCmd(),
	}
}

func newStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "stage [paths...]",
		Short:   "Stage changes (all when no paths are given)",
		Aliases: []string{"add"},
		GroupID: GroupMutate,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Stage(ctx, p.ID, args...)
			})
		},
	}
}

func newUnstageCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unstage [paths...]",
		Short:   "Unstage changes (all when no paths are given)",
		GroupID: GroupMutate,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Unstage(ctx, p.ID, args...)
			})
		},
	}
}

func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "discard <paths...>",
		Short:   "Discard unstaged changes to paths",
		GroupID: GroupMutate,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Discard(ctx, p.ID, args...)
			})
		},
	}
}

func newCommitCmd() *cobra.Command {
	var (
		message string
		amend   bool
	)

	cmd := &cobra.Command{
		Use:     "commit",
		Short:   "Commit staged changes",
		GroupID: GroupMutate,
		Args:    cobra.NoArgs,
		Example: `  gitagen commit -m "Fix typo"
  gitagen commit --amend -m "Better message"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				oid, err := a.coord.Commit(ctx, p.ID, message, amend)
				if err != nil {
					return err
				}
				out := output.FromContext(ctx)
				if out.JSON() {
					return out.PrintJSON(map[string]string{"oid": oid})
				}
				out.Println(format.ShortOID(oid))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	cmd.Flags().BoolVar(&amend, "amend", false, "Amend the previous commit")
	cmd.MarkFlagRequired("message")

	return cmd
}

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "checkout <ref>",
		Short:             "Switch to a branch or commit",
		Aliases:           []string{"co"},
		GroupID:           GroupMutate,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Checkout(ctx, p.ID, args[0])
			})
		},
	}
}

func newBranchCmd() *cobra.Command {
	var checkout bool

	cmd := &cobra.Command{
		Use:     "branch <name> [start-point]",
		Short:   "Create a branch",
		GroupID: GroupMutate,
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start := ""
			if len(args) == 2 {
				start = args[1]
			}
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.CreateBranch(ctx, p.ID, args[0], start, checkout)
			})
		},
	}

	cmd.Flags().BoolVarP(&checkout, "checkout", "c", false, "Switch to the new branch")

	return cmd
}

func newStashCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:     "stash",
		Short:   "Stash local changes, including untracked files",
		GroupID: GroupMutate,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Stash(ctx, p.ID, message)
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Stash message")

	cmd.AddCommand(&cobra.Command{
		Use:   "pop",
		Short: "Apply and drop the latest stash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.StashPop(ctx, p.ID)
			})
		},
	})

	return cmd
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "fetch [remote]",
		Short:   "Fetch from a remote (all remotes by default)",
		GroupID: GroupMutate,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := ""
			if len(args) == 1 {
				remote = args[0]
			}
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Fetch(ctx, p.ID, remote)
			})
		},
	}
}

func newPullCmd() *cobra.Command {
	var rebase bool

	cmd := &cobra.Command{
		Use:     "pull",
		Short:   "Pull the upstream of the current branch",
		GroupID: GroupMutate,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Pull(ctx, p.ID, rebase)
			})
		},
	}
	cmd.Flags().BoolVarP(&rebase, "rebase", "r", false, "Rebase instead of merge")

	return cmd
}

func newPushCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "push [remote]",
		Short:   "Push the current branch and set its upstream",
		GroupID: GroupMutate,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remote := ""
			if len(args) == 1 {
				remote = args[0]
			}
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Push(ctx, p.ID, remote, force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force push (with lease)")

	return cmd
}

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "merge <ref>",
		Short:             "Merge a branch into the current branch",
		GroupID:           GroupMutate,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Merge(ctx, p.ID, args[0])
			})
		},
	}
}

func newRebaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "rebase <ref>",
		Short:             "Rebase the current branch onto a ref",
		GroupID:           GroupMutate,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeBranches,
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.Rebase(ctx, p.ID, args[0])
			})
		},
	}
}

func newCherryPickCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "cherry-pick <commit>",
		Short:   "Apply a commit to the current branch",
		GroupID: GroupMutate,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return onProject(cmd, func(ctx context.Context, a *app, p *project.Project) error {
				return a.coord.CherryPick(ctx, p.ID, args[0])
			})
		},
	}
}
