package main

import (
	"fmt"
	"os"

	"techrace/internal/cli"
)

func main() {
	c := cli.NewCLI(cli.Options{
		Analysis: "funding",
		Output:   os.Stdout,
	})

	if err := c.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
