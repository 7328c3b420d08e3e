// Package main provides the entry point for the healthwatch availability
// monitor. healthwatch periodically probes a declared fleet of HTTP
// endpoints and database instances, records reachability transitions in an
// append-only journal, and exposes a live view of the fleet's health.
package main

import (
	"os"

	"github.com/healthwatch/daemon/internal/bootstrap"
)

func main() {
	os.Exit(bootstrap.Run())
}
