package main

import "github.com/atikulmunna/fleetwatch/internal/cmd"

func main() {
	cmd.Execute()
}
