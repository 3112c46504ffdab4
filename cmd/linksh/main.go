package main

import (
	"github.com/robotalks/genlink/pkg/cli/sh"
	"github.com/robotalks/genlink/pkg/env"

	_ "github.com/robotalks/genlink/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
