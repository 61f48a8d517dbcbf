package main

import (
	"log"

	"github.com/joho/godotenv"

	"rollcall/cmd/internal/app"
)

func main() {
	// Best effort; production configs come from real env vars.
	_ = godotenv.Load()

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
