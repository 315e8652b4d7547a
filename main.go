package main

import "github.com/KaramelBytes/outfall-cli/cmd"

func main() {
	cmd.Execute()
}
