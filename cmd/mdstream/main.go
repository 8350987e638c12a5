package main

import "github.com/samsaffron/mdstream/internal/cli"

func main() {
	cli.Execute()
}
