package sqlassets

import _ "embed"

//go:embed schema/apartments.sql
var ApartmentsSQL string

//go:embed schema/integrations.sql
var IntegrationsSQL string

//go:embed schema/webhooks.sql
var WebhooksSQL string
