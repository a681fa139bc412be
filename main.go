package main

import "github.com/reslock/reslock/cmd"

func main() {
	cmd.Execute()
}
