package main

import (
	"os"

	"psyched/internal/ctl"
)

func main() {
	if err := ctl.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
