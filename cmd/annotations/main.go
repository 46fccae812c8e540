// Command annotations inspects, materializes and verifies the schema catalogs.
package main

import "github.com/andressep95/annotations/cmd/annotations/commands"

func main() {
	commands.Execute()
}
