// Command alacarte is the tile server's entrypoint; all flag/subcommand
// wiring lives in internal/cmd.
package main

import "github.com/MeKo-Tech/alacarte/internal/cmd"

func main() {
	cmd.Execute()
}
