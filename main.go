package main

import "github.com/kozaktomas/class-attend/cmd"

func main() {
	cmd.Execute()
}
