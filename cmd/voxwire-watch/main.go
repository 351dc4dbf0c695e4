// Command voxwire-watch is a terminal dashboard over a running voxwire
// daemon: live directive lifecycle, trace stream, and health.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/calyptra/voxwire/internal/watch"
)

func main() {
	fs := flag.NewFlagSet("voxwire-watch", flag.ExitOnError)
	apiURL := fs.String("api", "http://127.0.0.1:8265", "Base URL of the voxwire API")
	apiKey := fs.String("key", "", "API bearer token (empty if auth is disabled)")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(1)
	}

	m := watch.New(*apiURL, *apiKey)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "watch failed: %v\n", err)
		os.Exit(1)
	}
}
