package main

import "github.com/anselm67/bookshelf/cmd"

// Swappable for tests.
var execute = cmd.Execute

func main() {
	execute()
}
