package main

import "github.com/aporia-ai/vmsearch/cmd"

func main() {
	cmd.Execute()
}
