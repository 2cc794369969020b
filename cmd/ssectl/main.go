package main

import (
	"fmt"
	"os"

	"github.com/jezachen/go-sse"

	_ "github.com/jezachen/go-sse/schemes/anss16"
	_ "github.com/jezachen/go-sse/schemes/ct14"
	_ "github.com/jezachen/go-sse/schemes/dp17"
	_ "github.com/jezachen/go-sse/schemes/pi2lev"
	_ "github.com/jezachen/go-sse/schemes/pibas"
	_ "github.com/jezachen/go-sse/schemes/pipack"
	_ "github.com/jezachen/go-sse/schemes/piptr"
	_ "github.com/jezachen/go-sse/schemes/sse1"
	_ "github.com/jezachen/go-sse/schemes/sse2"
)

func registeredSchemeNames() []string {
	return sse.Names()
}

func main() {
	if err := CLI().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ssectl: %v\n", err)
		os.Exit(1)
	}
}
