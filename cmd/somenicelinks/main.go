package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/Gundoganfa/SomeNiceLinks/internal/app"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ somenicelinks failed to start: %v", err)
	}
}
