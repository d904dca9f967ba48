package main

import (
	"os"

	"quiz-hosting/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
