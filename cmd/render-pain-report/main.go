package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/joelkehle/painradar/internal/archive"
	"github.com/joelkehle/painradar/internal/report"
)

func main() {
	_ = godotenv.Load()

	dbPath := flag.String("db", "", "path to the SQLite run archive")
	jobID := flag.String("job", "", "archived job id to render")
	outputPath := flag.String("output", "", "path to write markdown (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "optional path to write a rendered PDF")
	flag.Parse()

	if *dbPath == "" {
		*dbPath = os.Getenv("ARCHIVE_DB")
	}
	if *dbPath == "" {
		log.Fatal("missing required -db (or ARCHIVE_DB)")
	}
	if *jobID == "" {
		log.Fatal("missing required -job")
	}

	store, err := archive.Open(*dbPath)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	rec, results, err := store.GetRun(ctx, *jobID)
	if err != nil {
		log.Fatalf("load run: %v", err)
	}

	header := report.Header{
		JobID:        rec.JobID,
		Keywords:     rec.Keywords,
		Source:       rec.Source,
		GeneratedAt:  time.Now(),
		SampleSize:   rec.SampleSize,
		QualityLevel: rec.QualityLevel,
		Degraded:     rec.Degraded,
	}
	markdown := report.BuildMarkdown(header, results)

	if err := writeMarkdown(*outputPath, markdown); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		renderer := report.NewChromiumPDFRenderer()
		pdf, err := renderer.Render(ctx, markdown)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
		log.Printf("wrote %s (%d bytes)", *pdfPath, len(pdf))
	}
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
