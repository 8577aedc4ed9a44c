package main

import (
	"context"
	"fmt"
	"os"

	"github.com/luckyjohnb/rfpo-application-sub000/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(&cli.RootOptions{}).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
