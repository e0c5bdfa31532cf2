package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/memvault/memvault/pkg/cli"
)

func main() {
	// Optional .env for MEMVAULT_* settings; absence is fine.
	_ = godotenv.Load()

	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Message)
		os.Exit(err.Code)
	}
}
