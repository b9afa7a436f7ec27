package main

import "github.com/depotctl/depotctl/cmd"

func main() {
	cmd.Execute()
}
