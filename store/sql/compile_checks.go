package sqlstore

import "github.com/goliatone/go-integrations/core"

var (
	_ core.EphemeralStore    = (*Store)(nil)
	_ core.EphemeralConsumer = (*Store)(nil)
)
