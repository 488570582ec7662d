package main

import "github.com/khanhnv2901/webcheck/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
