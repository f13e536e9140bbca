package main

import (
	"context"
	"flag"
	"log"
	"math"

	"studyhub-be/internal/bootstrap"
	"studyhub-be/internal/config"
	"studyhub-be/internal/pkg/logger"
	"studyhub-be/internal/service"
	"studyhub-be/pkg/canvas"
)

func main() {
	userID := flag.String("user", "demo-user", "user id to seed a canvas for")
	force := flag.Bool("force", false, "overwrite an existing canvas")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	repo, closeRepo, err := bootstrap.OpenNoteCanvasRepository(ctx, cfg.Storage, cfg.IsProduction())
	if err != nil {
		log.Fatalf("Error: Failed to open snapshot store: %v", err)
	}
	defer closeRepo()

	svc := service.NewNoteCanvasService(repo, nil, nil, logger.NewNop())

	if !*force {
		existing, _, err := svc.LoadDocument(ctx, *userID)
		if err != nil {
			log.Fatalf("Error: Failed to read canvas: %v", err)
		}
		if existing != nil {
			log.Printf("Canvas for %s already exists (%d pages), skipping. Use -force to overwrite.", *userID, existing.PageCount())
			return
		}
	}

	doc := demoDocument()
	updatedAt, err := svc.SaveSnapshot(ctx, *userID, doc.Serialize())
	if err != nil {
		log.Fatalf("Error: Failed to save canvas: %v", err)
	}

	log.Printf("✅ Seeded %d pages for %s at %s", doc.PageCount(), *userID, updatedAt.Format("2006-01-02 15:04:05"))
}

func demoDocument() *canvas.Document {
	doc := canvas.New()

	doc.AddTextBox(0, canvas.Point{X: 60, Y: 40}, "Welcome to StudyHub", 28, "#1e293b")
	doc.AddTextBox(0, canvas.Point{X: 60, Y: 90}, "Draw, highlight and type anywhere on the page.", 18, "#000000")

	// a sine wave underline
	if _, err := doc.BeginStroke(0, canvas.Point{X: 60, Y: 150}, canvas.ToolDraw, "#2563eb", 4); err == nil {
		for x := 60.0; x <= 460; x += 8 {
			doc.ExtendStroke(0, canvas.Point{X: x, Y: 150 + 10*math.Sin((x-60)/25)})
		}
		doc.EndStroke(0)
	}

	if _, err := doc.BeginStroke(0, canvas.Point{X: 56, Y: 100}, canvas.ToolHighlighter, "#facc15", 4); err == nil {
		doc.ExtendStroke(0, canvas.Point{X: 420, Y: 100})
		doc.EndStroke(0)
	}

	doc.CreatePage()
	doc.AddTextBox(1, canvas.Point{X: 60, Y: 40}, "Page 2", 24, "#000000")
	doc.SetCurrentPage(0)

	return doc
}
