package root

import (
	"github.com/zenGate-Global/rentboard/apps/cli/cmd/auth"
	"github.com/zenGate-Global/rentboard/apps/cli/cmd/bootstrap"
	"github.com/zenGate-Global/rentboard/apps/cli/cmd/credentials"
	"github.com/zenGate-Global/rentboard/apps/cli/cmd/feed"
	"github.com/zenGate-Global/rentboard/apps/cli/cmd/webhooks"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(credentials.Command())
	Root().AddCommand(feed.Command())
	Root().AddCommand(webhooks.Command())
}
