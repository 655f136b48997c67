package main

import "github.com/lepinkainen/bookfinder/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
