package main

import "github.com/KaramelBytes/solarstat-cli/cmd"

func main() {
	cmd.Execute()
}
