package main

import (
	"log"

	"github.com/quickbite/platform/internal/gateway"
)

func main() {
	cfg := gateway.LoadConfig()

	application, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize gateway: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
