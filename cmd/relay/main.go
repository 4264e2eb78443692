package main

import (
	"log"

	"github.com/arapchelogoi/Sendwave/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
