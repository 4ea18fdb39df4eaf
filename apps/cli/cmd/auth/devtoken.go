package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/rentboard/platform/go/auth/devtoken"
)

const defaultProjectID = "rentboard-dev"

func devTokenCommand() *cobra.Command {
	var (
		params    devtoken.Params
		asHeader  bool
		expiresIn time.Duration
	)

	cmd := &cobra.Command{
		Use:   "devtoken",
		Short: "Mint an unsigned landlord token for an API running with AUTH_PROVIDER=dev",
		Example: `  rentboard auth devtoken --owner landlord-1
  rentboard auth devtoken --owner ops --admin --header`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if params.Email == "" {
				params.Email = params.UserID + "@rentboard.local"
			}
			params.ExpiresIn = expiresIn

			token, err := devtoken.BuildUnsignedFirebaseToken(params, time.Now().UTC())
			if err != nil {
				return err
			}

			if asHeader {
				fmt.Fprintf(cmd.OutOrStdout(), "Authorization: Bearer %s\n", token)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&params.UserID, "owner", "", "principal id; apartments and marketplace tokens are keyed by it")
	flags.StringVar(&params.Email, "email", "", "email claim (defaults to <owner>@rentboard.local)")
	flags.StringVar(&params.Name, "name", "", "display name")
	flags.BoolVar(&params.IsAdmin, "admin", false, "allow configuring marketplace apps")
	flags.StringSliceVar(&params.Roles, "roles", nil, "extra roles (comma-separated)")
	flags.StringVar(&params.ProjectID, "project-id", defaultProjectID, "Firebase project id used for iss/aud")
	flags.BoolVar(&params.EmailVerified, "email-verified", true, "email_verified claim")
	flags.DurationVar(&expiresIn, "expires-in", time.Hour, "token lifetime")
	flags.BoolVar(&asHeader, "header", false, "print a ready-to-paste Authorization header")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
