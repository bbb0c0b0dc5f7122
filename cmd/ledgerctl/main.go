// ledgerctl is the operator tool for the ledger database.
package main

import (
	"context"
	"os"

	"github.com/pocketledger/backend/cmd/ledgerctl/cmd"
)

func main() {
	if err := cmd.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
