package main

import "github.com/shouni/go-web-research/cmd"

func main() {
	cmd.Execute()
}
