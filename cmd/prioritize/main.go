package main

import (
	"os"

	"github.com/MikeSquared-Agency/Prioritize/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
