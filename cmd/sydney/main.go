// Command sydney is a terminal chat client for Bing's Sydney.
package main

import "github.com/diogo/sydney/internal/commands"

func main() {
	commands.Execute()
}
