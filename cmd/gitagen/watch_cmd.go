package main

import (
	"github.com/spf13/cobra"

	"github.com/gitagen/gitagen/internal/events"
	"github.com/gitagen/gitagen/internal/log"
	"github.com/gitagen/gitagen/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "watch",
		Short:   "Invalidate caches when git state changes outside gitagen",
		GroupID: GroupUtility,
		Args:    cobra.NoArgs,
		Long: `Watch HEAD and the index of every registered project (or only the one
named with --project) and drop the project's cache when they change, e.g.
after a commit or checkout in another terminal.

Runs until interrupted. The cache retention sweep runs in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := log.FromContext(ctx)

			return withApp(ctx, func(a *app) error {
				if !showEvents {
					a.bus.Subscribe(func(e events.Event) { printEvent(l, e) }, events.TypeRepoUpdated)
				}

				w, err := watch.New(a.coord, a.git)
				if err != nil {
					return err
				}
				defer w.Close()

				reg, err := a.projects.Load()
				if err != nil {
					return err
				}
				projects := reg.Projects
				if projectRef != "" {
					p, err := reg.Find(projectRef)
					if err != nil {
						return err
					}
					projects = projects[:0:0]
					projects = append(projects, *p)
				}

				for _, p := range projects {
					cwd, err := reg.ResolveCwd(p.ID)
					if err != nil {
						return err
					}
					if err := w.Add(ctx, p.ID, cwd); err != nil {
						l.Printf("Warning: %s: %v\n", p.Name, err)
					}
				}
				if w.Len() == 0 {
					l.Printf("Nothing to watch\n")
					return nil
				}

				l.Printf("Watching %d project(s), press Ctrl-C to stop\n", len(projects))
				return w.Run(ctx)
			})
		},
	}
}
