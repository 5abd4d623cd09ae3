package main

import (
	"github.com/bogdan-lmk/twsignals/internal/cli"
)

func main() {
	cli.Execute()
}
