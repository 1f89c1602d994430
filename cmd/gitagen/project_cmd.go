package main

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/format"
	"github.com/gitagen/gitagen/internal/git"
	"github.com/gitagen/gitagen/internal/grouping"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/output"
	"github.com/gitagen/gitagen/internal/project"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Short:   "Manage registered projects",
		Aliases: []string{"proj"},
		GroupID: GroupProject,
	}

	cmd.AddCommand(newProjectAddCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectRemoveCmd())
	cmd.AddCommand(newProjectUseCmd())

	return cmd
}

func newProjectAddCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add [path]",
		Short: "Register a git repository as a project",
		Args:  cobra.MaximumNArgs(1),
		Example: `  gitagen project add                 # Current directory
  gitagen project add ~/src/api --name api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			path := workDir
			if len(args) == 1 {
				path = args[0]
			}
			absPath, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			if !git.IsInsideRepoPath(ctx, absPath) {
				return fmt.Errorf("not a git repository: %s", absPath)
			}

			store, err := projectStore()
			if err != nil {
				return err
			}
			var added project.Project
			if err := store.Update(func(reg *project.Registry) error {
				p, err := reg.Add(absPath, name, time.Now())
				if err != nil {
					return err
				}
				added = *p
				return nil
			}); err != nil {
				return err
			}

			if out.JSON() {
				return out.PrintJSON(added)
			}
			out.Printf("Added %s (%s)\n", added.Name, format.ShortID(added.ID))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (default: directory name)")

	return cmd
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List projects, most recently opened first",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			store, err := projectStore()
			if err != nil {
				return err
			}
			reg, err := store.Load()
			if err != nil {
				return err
			}

			projects := slices.Clone(reg.Projects)
			slices.SortStableFunc(projects, func(a, b project.Project) int {
				return b.LastOpenedAt.Compare(a.LastOpenedAt)
			})

			if len(projects) == 0 && !out.JSON() {
				out.Println("No projects registered")
				return nil
			}

			var rows [][]string
			for _, p := range projects {
				rows = append(rows, []string{
					format.ShortID(p.ID),
					p.Name,
					format.RelativeTime(p.LastOpenedAt),
					p.Path,
					reg.Prefs[p.ID].ActiveWorktreePath,
				})
			}
			return out.Table([]string{"ID", "NAME", "OPENED", "PATH", "ACTIVE WORKTREE"}, rows, projects)
		},
	}
}

func newProjectRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "remove <project>",
		Short:             "Unregister a project",
		Aliases:           []string{"rm"},
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeProjectNames,
		Long: `Unregister a project and drop its cached data.

If the project's path or active worktree is a managed worktree, that
worktree is removed as well. Repositories outside the managed directory
are never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				var (
					removed project.Project
					active  string
				)
				if err := a.projects.Update(func(reg *project.Registry) error {
					p, err := reg.Find(args[0])
					if err != nil {
						return err
					}
					active = reg.Prefs[p.ID].ActiveWorktreePath
					removed, err = reg.Remove(p.ID)
					return err
				}); err != nil {
					return err
				}

				if err := a.cache.DeleteAllForProject(ctx, removed.ID); err != nil {
					l.Warn("drop cached data", "project", removed.ID, "err", err)
				}

				for _, path := range []string{removed.Path, active} {
					if path == "" {
						continue
					}
					ok, err := a.worktrees.RemoveForProject(ctx, path)
					if err != nil {
						l.Printf("Warning: remove worktree %s: %v\n", path, err)
						continue
					}
					if ok {
						l.Printf("Removed worktree %s\n", path)
					}
				}

				l.Printf("Removed project %s\n", removed.Name)
				return nil
			})
		},
	}

	return cmd
}

func newProjectUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "use <project> [worktree-path]",
		Short:             "Open a project, optionally switching its active worktree",
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeProjectNames,
		Long: `Mark a project as opened and set the worktree git commands run in.

Without a worktree path the active worktree is reset to the project path.`,
		Example: `  gitagen project use api
  gitagen project use api ~/.gitagen/worktrees/api/feature-x`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			active := ""
			if len(args) == 2 {
				abs, err := filepath.Abs(args[1])
				if err != nil {
					return err
				}
				if !git.IsInsideRepoPath(ctx, abs) {
					return fmt.Errorf("not a git worktree: %s", abs)
				}
				active = filepath.Clean(abs)
			}

			return withApp(ctx, func(a *app) error {
				var id string
				if err := a.projects.Update(func(reg *project.Registry) error {
					p, err := reg.Find(args[0])
					if err != nil {
						return err
					}
					id = p.ID
					if active == p.Path {
						active = ""
					}
					if err := reg.SetActiveWorktree(id, active); err != nil {
						return err
					}
					return reg.Touch(id, time.Now())
				}); err != nil {
					return err
				}

				// The log cache is keyed by project, not cwd
				a.coord.Invalidate(ctx, id)
				return nil
			})
		},
	}
}

func newGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "group",
		Short:   "Show projects grouped under the repository they are worktrees of",
		GroupID: GroupProject,
		Args:    cobra.NoArgs,
		Long: `Group projects whose toplevel is another registered project.

Only the most recently opened projects are checked (grouping.candidates
in the config); the rest are listed ungrouped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			store, err := projectStore()
			if err != nil {
				return err
			}
			reg, err := store.Load()
			if err != nil {
				return err
			}

			grouper := grouping.NewGrouper(
				git.New(),
				grouping.NewTopLevelCache(cfg.Grouping.TTL.Duration, nil),
				grouping.WithCandidates(cfg.Grouping.Candidates),
				grouping.WithWorkers(cfg.Grouping.Workers),
			)
			grouped := grouper.GroupByToplevel(ctx, reg.Projects)

			var rows [][]string
			for _, g := range grouped {
				if g.ParentProjectID != "" {
					continue
				}
				rows = append(rows, []string{g.Name, g.Path})
				for _, child := range g.WorktreeChildren {
					rows = append(rows, []string{"  └ " + child.Name, child.Path})
				}
			}
			if len(rows) == 0 && !out.JSON() {
				out.Println("No projects registered")
				return nil
			}
			return out.Table([]string{"PROJECT", "PATH"}, rows, grouped)
		},
	}
}
