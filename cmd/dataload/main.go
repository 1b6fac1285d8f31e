package main

import (
	"github.com/gmsdev/dataload/pkg/cli"
)

func main() {
	cli.Execute()
}
