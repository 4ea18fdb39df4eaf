package feed

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zenGate-Global/rentboard/apps/cli/cmd/dbconn"
	apartmentsrepo "github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	feedsservice "github.com/zenGate-Global/rentboard/domains/feeds/be/service"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

type openRepo func(ctx context.Context, databaseURL string) (apartmentsrepo.Repository, func(), error)

// Command groups feed helpers.
func Command() *cobra.Command {
	return newCommand(openPostgres)
}

func newCommand(open openRepo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Inspect the marketplace XML feeds",
	}
	cmd.AddCommand(renderCommand(open))
	return cmd
}

func renderCommand(open openRepo) *cobra.Command {
	var (
		databaseURL  string
		platformName string
		owner        string
		baseURL      string
	)

	c := &cobra.Command{
		Use:   "render",
		Short: "Write the feed document of a marketplace to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := rental.ParsePlatform(platformName)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			r, release, err := open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer release()

			svc := feedsservice.New(r, feedsservice.Config{BaseURL: baseURL}, zap.NewNop())
			doc, err := svc.Generate(ctx, platform, owner)
			if err != nil {
				return fmt.Errorf("render %s feed: %w", platform, err)
			}

			_, err = cmd.OutOrStdout().Write(doc)
			return err
		},
	}

	dbconn.AddFlag(c, &databaseURL)
	c.Flags().StringVar(&platformName, "platform", "", "marketplace: olx or otodom")
	c.Flags().StringVar(&owner, "owner", "", "restrict the feed to one owner")
	c.Flags().StringVar(&baseURL, "base-url", "", "origin used to resolve relative photo URLs")
	_ = c.MarkFlagRequired("platform")

	return c
}

func openPostgres(ctx context.Context, databaseURL string) (apartmentsrepo.Repository, func(), error) {
	pool, err := dbconn.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := persistence.NewApartmentStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, err
	}
	return apartmentsrepo.NewPostgresRepository(store), func() { persistence.ClosePool(pool) }, nil
}
