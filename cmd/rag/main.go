package main

import (
	"os"

	"github.com/qwant1k/rag/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
