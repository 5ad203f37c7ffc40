package main

import (
	"fmt"
	"os"

	"github.com/cyp0633/librecur/cmd/recurctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
