// Hermes CLI - Command-line interface for remote configuration
//
// This binary exposes the Orpheus-powered CLI for Hermes remote
// configuration sources. Provider packages are imported for their side
// effect of registering themselves with the provider registry.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"fmt"
	"os"

	"github.com/agilira/hermes/cmd/cli"

	_ "github.com/agilira/hermes/providers/consul"
	_ "github.com/agilira/hermes/providers/http"
	_ "github.com/agilira/hermes/providers/redis"
)

func main() {
	manager := cli.NewManager()

	if err := manager.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
