package main

import (
	"os"

	"github.com/jwlutz/thats-my-quantv1/cmd/quantsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
