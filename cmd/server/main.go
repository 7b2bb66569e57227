package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/openmutual/hub/internal/server"
)

func main() {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	h, err := server.NewHandlerWithOptions(server.HandlerOptions{
		SeedTenants:   os.Getenv("TENANTS_SEED") != "0",
		PurgeInterval: time.Hour,
	})
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("hub listening on %s", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		log.Fatal(err)
	}
}
