package main

import "github.com/funvibe/dextype/cmd/dextype/commands"

func main() {
	commands.Execute()
}
