package main

import (
	"log"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"podscribe/transcript-service/config"
	"podscribe/transcript-service/handlers"
	"podscribe/transcript-service/internal/chunkstore"
	"podscribe/transcript-service/internal/editing"
	"podscribe/transcript-service/internal/editoridentity"
	"podscribe/transcript-service/internal/history"
	"podscribe/transcript-service/internal/store"
	"podscribe/transcript-service/middleware"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	config.InitLogger()

	client, err := config.NewSupabaseClient()
	if err != nil {
		log.Fatalf("Failed to initialize Supabase: %v", err)
	}

	st := store.NewSupabaseStore(client, config.Log)
	editors := editoridentity.NewService(st, config.Log)
	hist := history.New(st, config.Log)
	editingSvc := editing.NewService(st, hist, config.Log)

	maxChunkBytes := 0
	if raw := os.Getenv("CHUNK_MAX_BYTES"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			maxChunkBytes = parsed
		}
	}
	chunks := chunkstore.NewService(st, config.Log, maxChunkBytes)

	h := handlers.NewApplicationHandler(config.Log, editors, editingSvc, chunks, hist)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Editor-Email",
	}))
	app.Use(middleware.RequestLogger())

	// Health check route
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Transcript service is healthy",
		})
	})

	// API v1 routes
	apiV1 := app.Group("/api/v1")

	apiV1.Post("/login", h.Login)

	apiV1.Get("/history", h.GetHistory)
	apiV1.Post("/history/:id/revert", h.RevertEdit)

	transcripts := apiV1.Group("/transcripts/:slug/:lang")
	transcripts.Put("", h.SaveTranscript)
	transcripts.Post("/operations", h.ApplyOperation)
	transcripts.Get("/chunks", h.GetChunksInfo)
	transcripts.Delete("/chunks", h.ClearChunks)
	transcripts.Get("/reconstruct", h.ReconstructTranscript)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	config.Log.WithField("port", port).Info("Starting transcript service")
	log.Fatal(app.Listen(":" + port))
}
