package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit codes of the isploader commands.
const (
	ExitFailure  = 1
	ExitNoDevice = 2
	ExitVerify   = 3
	ExitAborted  = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

// Fail wraps err into an exit error with a red message.
func Fail(code int, action string, err error) cli.ExitCoder {
	return Exit(code, "%s: %s", action, Red(err))
}
