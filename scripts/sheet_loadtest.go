//go:build ignore
// +build ignore

// Load Test Script for Sheet Ingestion Throughput
// This script generates synthetic recipient sheets and measures how fast the
// validation pipeline can review them, row by row.
//
// Usage:
//   go run scripts/sheet_loadtest.go \
//     --rows=100000 \
//     --bad-percent=5 \
//     --template-type=sms \
//     --runs=3 \
//     --server=http://localhost:8080
//
// Without --server the sheet is parsed in-process. With --server the sheet is
// also POSTed to /api/sheets/preview so the full upload path gets timed.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ignite/recipient-engine/internal/recipients"
	"github.com/ignite/recipient-engine/internal/template"
)

type loadTestConfig struct {
	Rows         int
	BadPercent   int
	TemplateType string
	Runs         int
	ServerURL    string
}

func main() {
	cfg := loadTestConfig{}
	flag.IntVar(&cfg.Rows, "rows", 100000, "number of data rows to generate")
	flag.IntVar(&cfg.BadPercent, "bad-percent", 5, "percentage of rows with a broken recipient")
	flag.StringVar(&cfg.TemplateType, "template-type", "sms", "sms, email or letter")
	flag.IntVar(&cfg.Runs, "runs", 3, "number of timed parse runs")
	flag.StringVar(&cfg.ServerURL, "server", "", "optional base URL of a running server to POST the sheet to")
	flag.Parse()

	log.Printf("Generating %d-row %s sheet (%d%% broken rows)...", cfg.Rows, cfg.TemplateType, cfg.BadPercent)
	fileData := buildSheet(cfg)
	log.Printf("Sheet size: %.2f MB", float64(len(fileData))/(1<<20))

	tmpl, err := templateFor(cfg.TemplateType)
	if err != nil {
		log.Fatalf("bad template type: %v", err)
	}

	var total time.Duration
	for run := 1; run <= cfg.Runs; run++ {
		start := time.Now()

		sheet, err := recipients.New(fileData, tmpl, recipients.Options{
			MaxRows:             cfg.Rows + 10,
			MaxErrorsShown:      20,
			MaxInitialRowsShown: 10,
		})
		if err != nil {
			log.Fatalf("build sheet: %v", err)
		}
		badRows := len(sheet.RowsWithBadRecipients())
		hasErrors := sheet.HasErrors()

		elapsed := time.Since(start)
		total += elapsed
		log.Printf("Run %d: %d rows in %v (%.0f rows/sec), %d bad recipients, has_errors=%v",
			run, sheet.Len(), elapsed.Round(time.Millisecond),
			float64(sheet.Len())/elapsed.Seconds(), badRows, hasErrors)
	}
	log.Printf("Average parse time over %d runs: %v", cfg.Runs, (total / time.Duration(cfg.Runs)).Round(time.Millisecond))

	if cfg.ServerURL != "" {
		postToServer(cfg, fileData)
	}
}

func buildSheet(cfg loadTestConfig) string {
	rng := rand.New(rand.NewSource(42))

	var sheet strings.Builder
	switch cfg.TemplateType {
	case "email":
		sheet.WriteString("email address,name\n")
	case "letter":
		sheet.WriteString("address line 1,address line 2,address line 3\n")
	default:
		sheet.WriteString("phone number,name\n")
	}

	for i := 0; i < cfg.Rows; i++ {
		broken := rng.Intn(100) < cfg.BadPercent
		switch cfg.TemplateType {
		case "email":
			if broken {
				fmt.Fprintf(&sheet, "not-an-address-%d,Person %d\n", i, i)
			} else {
				fmt.Fprintf(&sheet, "person%d@example.com,Person %d\n", i, i)
			}
		case "letter":
			if broken {
				fmt.Fprintf(&sheet, "Person %d,1 Example Street,Nowhere\n", i)
			} else {
				fmt.Fprintf(&sheet, "Person %d,1 Example Street,SW1A 1AA\n", i)
			}
		default:
			if broken {
				fmt.Fprintf(&sheet, "0770090,Person %d\n", i)
			} else {
				fmt.Fprintf(&sheet, "07700%06d,Person %d\n", rng.Intn(1000000), i)
			}
		}
	}
	return sheet.String()
}

func templateFor(templateType string) (template.Template, error) {
	switch template.Type(templateType) {
	case template.TypeSMS:
		return template.NewSMS("Hello {{ name }}"), nil
	case template.TypeEmail:
		return template.NewEmail("Update", "Hello {{ name }}"), nil
	case template.TypeLetter:
		return template.NewLetter("Dear resident"), nil
	}
	return nil, fmt.Errorf("unknown template type %q", templateType)
}

func postToServer(cfg loadTestConfig, fileData string) {
	content := "Hello {{ name }}"
	if cfg.TemplateType == "letter" {
		content = "Dear resident"
	}
	payload, err := json.Marshal(map[string]interface{}{
		"filename":      "loadtest.csv",
		"file_data":     fileData,
		"template_type": cfg.TemplateType,
		"subject":       "Update",
		"content":       content,
	})
	if err != nil {
		log.Fatalf("marshal payload: %v", err)
	}

	url := strings.TrimRight(cfg.ServerURL, "/") + "/api/sheets/preview"
	log.Printf("POSTing sheet to %s...", url)

	start := time.Now()
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("POST failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	log.Printf("Server answered %d in %v", resp.StatusCode, time.Since(start).Round(time.Millisecond))

	var parsed struct {
		Session struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"session"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		log.Printf("Response was not the expected shape: %s", body[:min(len(body), 200)])
		os.Exit(1)
	}
	log.Printf("Session %s stored with status %q", parsed.Session.ID, parsed.Session.Status)
}
