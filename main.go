package main

import "github.com/cardforge/cardforge/cmd"

func main() {
	cmd.Execute()
}
