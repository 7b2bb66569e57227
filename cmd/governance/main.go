package main

import (
	"log"
	"net/http"
	"os"

	"github.com/openmutual/hub/internal/governance"
)

func main() {
	addr := os.Getenv("GOVERNANCE_HTTP_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	log.Printf("governance listening on %s", addr)
	if err := http.ListenAndServe(addr, governance.MustNewHandler()); err != nil {
		log.Fatal(err)
	}
}
