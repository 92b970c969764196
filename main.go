package main

import (
	"log"

	"github.com/spigell/apply-pilot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
