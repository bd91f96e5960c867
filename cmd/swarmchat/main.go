// swarmchat runs the discussion engine as an HTTP service.
//
// Usage:
//
//	swarmchat serve                        # start the service
//	swarmchat serve --config config.yaml   # with a config file
//	swarmchat version                      # show version
//	swarmchat health                       # probe a running instance
package main

import (
	"fmt"
	"os"
)

// Injected at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("swarmchat %s\n", Version)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`swarmchat - multi-persona discussion engine

Commands:
  serve     Start the HTTP service
  version   Show version information
  health    Probe a running instance
  help      Show this help`)
}
