package main

import "opsdash/cmd"

func main() {
	cmd.Execute()
}
