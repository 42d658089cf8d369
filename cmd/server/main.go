package main

import (
	"log"

	"warbler/internal/transport/http"
)

func main() {
	if err := http.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
