package main

import "github.com/calvinmclean/tensile/cmd/tensile/cmd"

func main() {
	cmd.Execute()
}
