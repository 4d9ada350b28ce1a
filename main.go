package main

import "github.com/akashbera009/kichu-kotha/cmd"

func main() {
	cmd.Execute()
}
