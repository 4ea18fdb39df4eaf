package credentials

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/rentboard/apps/cli/cmd/dbconn"
	credentialsrepo "github.com/zenGate-Global/rentboard/domains/credentials/be/repo"
	credentialsservice "github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/rental"
)

// openRepo resolves the credential repository for a connection string; the returned func releases it.
type openRepo func(ctx context.Context, databaseURL string) (credentialsrepo.Repository, func(), error)

// Command groups marketplace credential helpers.
func Command() *cobra.Command {
	return newCommand(openPostgres)
}

func newCommand(open openRepo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage marketplace app credentials",
	}
	cmd.AddCommand(setCommand(open))
	return cmd
}

func setCommand(open openRepo) *cobra.Command {
	var (
		databaseURL  string
		platformName string
		input        credentialsservice.ConfigureAppInput
	)

	c := &cobra.Command{
		Use:   "set",
		Short: "Store the OAuth client registration of a marketplace",
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := rental.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			input.Platform = platform

			ctx := cmd.Context()
			r, release, err := open(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer release()

			svc := credentialsservice.New(r, credentialsservice.Config{})
			app, err := svc.ConfigureApp(ctx, input)
			if err != nil {
				return fmt.Errorf("configure %s: %w", platform, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s app configured (client %s)\n", app.Platform.DisplayName(), app.ClientID)
			return nil
		},
	}

	dbconn.AddFlag(c, &databaseURL)
	c.Flags().StringVar(&platformName, "platform", "", "marketplace: olx or otodom")
	c.Flags().StringVar(&input.ClientID, "client-id", "", "OAuth client id")
	c.Flags().StringVar(&input.ClientSecret, "client-secret", "", "OAuth client secret")
	c.Flags().StringVar(&input.APIKey, "api-key", "", "partner API key (required for otodom)")
	_ = c.MarkFlagRequired("platform")
	_ = c.MarkFlagRequired("client-id")
	_ = c.MarkFlagRequired("client-secret")

	return c
}

func openPostgres(ctx context.Context, databaseURL string) (credentialsrepo.Repository, func(), error) {
	pool, err := dbconn.Open(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	store, err := persistence.NewCredentialStore(pool)
	if err != nil {
		persistence.ClosePool(pool)
		return nil, nil, err
	}
	return credentialsrepo.NewPostgresRepository(store), func() { persistence.ClosePool(pool) }, nil
}
