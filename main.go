package main

import "github.com/iksnae/trustagent/cmd"

func main() {
	cmd.Execute()
}
