package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"campus-idcards/app"
)

func main() {
	// Load .env file in development (ignores error if file doesn't exist)
	// In production, variables should be set directly
	if os.Getenv("ENV") != "production" {
		envPath := ".env"
		if err := godotenv.Overload(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, using system environment variables", envPath)
		} else {
			log.Printf("Successfully loaded environment variables from %s (overriding system variables)", envPath)
		}
	}

	mux := http.NewServeMux()
	if err := app.Initialize(mux); err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker)
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	// Remove leading colon if present
	if len(port) > 0 && port[0] == ':' {
		port = port[1:]
	}
	addr := "0.0.0.0:" + port
	log.Printf("Server starting on %s", addr)
	log.Printf("Create an editor session: POST http://localhost:%s/admin/idcards/sessions", port)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
