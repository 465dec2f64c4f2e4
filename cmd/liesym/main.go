// Command liesym finds and checks Lie point symmetries of ODE systems.
//
//	liesym models
//	liesym find gompertz-system --degree 2
//	liesym find model.yaml --json
//	liesym check model.yaml --xi 1 --eta 0 --eta 0
//	liesym serve --addr :8080
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
