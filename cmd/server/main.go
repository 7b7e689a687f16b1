// Command server runs the submission backend HTTP API.
package main

import (
	"context"
	"log"

	"github.com/heartmarshall/submission-backend/internal/app"
)

func main() {
	if err := app.Run(context.Background()); err != nil {
		log.Fatalf("server: %v", err)
	}
}
