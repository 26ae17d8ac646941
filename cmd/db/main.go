// Command db is the process entry point (spec §6): `db <filename>`
// opens (or creates) a table file and runs the interactive prompt.
package main

import (
	"fmt"
	"os"

	"rowtree/cli"
	"rowtree/engine"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Must supply a database filename.")
		os.Exit(1)
	}

	eng, err := engine.Open(os.Args[1])
	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	repl, err := cli.NewRepl(eng)
	if err != nil {
		fmt.Printf("%+v\n", err)
		os.Exit(1)
	}

	os.Exit(repl.Run())
}
