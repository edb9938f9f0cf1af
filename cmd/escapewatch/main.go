package main

import (
	"log"

	"github.com/dkrasner/escapewatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatal(err)
	}
}
