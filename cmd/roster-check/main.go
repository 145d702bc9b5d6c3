// Command roster-check validates a roster file with the server's loading rules
// and prints each group with its members.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/okian/peereval/internal/adapters/roster"
	"github.com/okian/peereval/internal/config"
)

func main() {
	var (
		path    = flag.String("roster", "", "Roster CSV (default: roster_path from config)")
		members = flag.Bool("members", false, "List members under each group")
	)
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(2)
	}
	if *path != "" {
		cfg.RosterPath = *path
	}

	if err := check(ctx, cfg, *members, os.Stdout); err != nil {
		os.Stderr.WriteString("roster check failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// check loads the roster named by cfg and writes a per-group summary to w.
func check(ctx context.Context, cfg *config.Config, members bool, w io.Writer) error {
	r, err := roster.LoadFile(ctx, cfg.RosterPath, roster.WithColumns(roster.Columns{
		ID:    cfg.RosterIDColumn,
		Name:  cfg.RosterNameColumn,
		Group: cfg.RosterGroupColumn,
		Email: cfg.RosterEmailColumn,
	}))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "GROUP\tMEMBERS\n")
	for _, g := range r.Groups() {
		group := r.Group(g)
		fmt.Fprintf(tw, "%s\t%d\n", g, len(group))
		if members {
			for _, p := range group {
				fmt.Fprintf(tw, "  %s\t%s <%s>\n", p.ID, p.Name, p.Email)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%d participants in %d groups\n", r.Len(), len(r.Groups()))
	return nil
}
