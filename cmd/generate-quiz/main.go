package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentintelligence/internal/models"
	"github.com/Lllllllleong/documentintelligence/internal/services"
)

var (
	instance *services.GenerateQuizFunction
	once     sync.Once
	initErr  error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("HandleGenerateQuiz", handleGenerateQuiz)
}

// main is required by the Go Functions Framework.
func main() {}

func handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		instance, initErr = services.NewGenerateQuiz(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.GenerateQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := instance.Process(r.Context(), &req)
	if err != nil {
		// The error is already logged with context inside Process.
		status := services.StatusCode(err)
		http.Error(w, http.StatusText(status)+": "+err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
