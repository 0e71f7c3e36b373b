package main

import "github.com/tsiemens/ukcgt/cmd"

func main() {
	cmd.Execute()
}
