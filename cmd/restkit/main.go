package main

import (
	"os"

	"github.com/kbukum/restkit/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
