package main

import (
	"fmt"
	"os"
)

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
