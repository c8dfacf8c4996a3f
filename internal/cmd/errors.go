package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ma3u/mcp-server-dust/internal/errs"
)

func handleError(err error) {
	var merr errs.Error
	if errors.As(err, &merr) {
		fmt.Fprintf(os.Stderr, "\n%s\n", merr.ReasonText())
		if merr.Err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", merr.Err)
		}
		fmt.Fprintln(os.Stderr)
		return
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", err)
}
