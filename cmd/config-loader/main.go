package main

import (
	"log"

	"github.com/gmsdev/dataload/pkg/api"
)

func main() {
	if err := api.Serve(); err != nil {
		log.Fatal(err)
	}
}
