package main

import (
	"context"
	"fmt"
	"os"

	aidecmder "github.com/papercomputeco/aide/cmd/aide"
)

func main() {
	cmd := aidecmder.NewAideCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, aidecmder.ErrorMessage(err))
		os.Exit(aidecmder.ExitCode(err))
	}
}
