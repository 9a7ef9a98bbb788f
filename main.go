package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gwos/walltime/commands"
	wterr "github.com/gwos/walltime/errors"
)

func main() {
	if err := commands.Run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, wterr.ErrInvalidArgument) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
