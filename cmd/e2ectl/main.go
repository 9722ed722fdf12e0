package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"e2estore/internal/cli"

	"github.com/fatih/color"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("[error] ")+err.Error())
		os.Exit(1)
	}
}
