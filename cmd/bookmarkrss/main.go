package main

import (
	"log"

	"github.com/MrSnakeDoc/bookmarkrss/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ bookmarkrss failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ bookmarkrss stopped with error: %v", err)
	}
}
