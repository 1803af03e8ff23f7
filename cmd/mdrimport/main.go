// Command mdrimport imports staged MDR source data into normalized tables.
package main

import "github.com/mesh-intelligence/mdrimport/internal/cli"

func main() {
	cli.Execute()
}
