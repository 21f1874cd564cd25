package main

import "memorizefacts/cmd/client/cmd"

func main() {
	cmd.Execute()
}
