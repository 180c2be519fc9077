package main

import "commgraph/cmd"

func main() {
	cmd.Execute()
}
