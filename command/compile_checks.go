package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-integrations/core"
)

var (
	_ gocmd.Commander[AuthorizeMessage]        = (*AuthorizeCommand)(nil)
	_ gocmd.Commander[CompleteCallbackMessage] = (*CompleteCallbackCommand)(nil)
	_ gocmd.Commander[GetCredentialsMessage]   = (*GetCredentialsCommand)(nil)

	_ MutatingService = (*core.Service)(nil)
)
