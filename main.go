package main

import "github.com/tmalloy/partialpool/cmd"

func main() {
	cmd.Execute()
}
