package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/rentboard/apps/cli/cmd/dbconn"
	webhooksrepo "github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
)

type openLog func(ctx context.Context, databaseURL string) (webhooksrepo.FailureLog, func(), error)

// Command groups webhook diagnostics.
func Command() *cobra.Command {
	return newCommand(openPostgres)
}

func newCommand(open openLog) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Inspect webhook processing",
	}
	cmd.AddCommand(failuresCommand(open))
	return cmd
}

func failuresCommand(open openLog) *cobra.Command {
	var (
		databaseURL string
		limit       int
		asJSON      bool
	)

	c := &cobra.Command{
		Use:   "failures",
		Short: "List recent unmatched or failed webhook notifications, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log, release, err := open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer release()

			failures, err := log.List(ctx, limit)
			if err != nil {
				return fmt.Errorf("list webhook failures: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(failures)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OCCURRED\tPLATFORM\tEVENT\tTRANSACTION\tOBJECT\tREASON")
			for _, f := range failures {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					f.OccurredAt.UTC().Format(time.RFC3339), f.Platform, f.EventType, f.TransactionID, f.ObjectID, f.Reason)
			}
			return tw.Flush()
		},
	}

	dbconn.AddFlag(c, &databaseURL)
	c.Flags().IntVar(&limit, "limit", 50, "maximum entries to show (0 for all)")
	c.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return c
}

func openPostgres(ctx context.Context, databaseURL string) (webhooksrepo.FailureLog, func(), error) {
	pool, err := dbconn.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := persistence.NewWebhookFailureStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, err
	}
	return webhooksrepo.NewPostgresFailureLog(store), func() { persistence.ClosePool(pool) }, nil
}
