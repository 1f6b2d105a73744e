package main

import (
	"os"

	"github.com/bnema/zalo-accounts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
