package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
)

// reconcileVotes prints the replies whose cached vote count drifted from their votes.
func (cli *commandLine) reconcileVotes(fix bool) error {
	drifts, err := cli.forumSvc.ReconcileVotes(context.Background(), fix)
	if err != nil {
		return errors.Wrap(err, "reconciling votes")
	}
	if len(drifts) == 0 {
		_, _ = fmt.Fprintln(cli.out, "no drift")
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "REPLY\tCACHED\tACTUAL")
	for _, d := range drifts {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\n", d.ReplyID, d.Cached, d.Actual)
	}
	if err = w.Flush(); err != nil {
		return err
	}
	if fix {
		_, _ = fmt.Fprintf(cli.out, "%d counters repaired\n", len(drifts))
	}
	return nil
}
