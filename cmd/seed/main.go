// Command seed loads products from a CSV file into a running server.
// The CSV columns are: name, quantity, price, category. A header row with
// "name" in the first column is skipped.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type productPayload struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	file := flag.String("file", "products.csv", "CSV file to load")
	flag.Parse()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *file, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	client := &http.Client{Timeout: 10 * time.Second}

	var created, failed int
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("failed to read CSV: %v", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "name") {
			continue
		}

		payload, err := parseRecord(record)
		if err != nil {
			log.Printf("line %d: %v", line, err)
			failed++
			continue
		}

		if err := postProduct(client, *addr, payload); err != nil {
			log.Printf("line %d: %v", line, err)
			failed++
			continue
		}
		created++
	}

	log.Printf("done: %d products created, %d failed", created, failed)
}

func parseRecord(record []string) (productPayload, error) {
	if len(record) < 3 {
		return productPayload{}, fmt.Errorf("expected at least 3 columns, got %d", len(record))
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(record[1]))
	if err != nil {
		return productPayload{}, fmt.Errorf("invalid quantity %q: %w", record[1], err)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(record[2]))
	if err != nil {
		return productPayload{}, fmt.Errorf("invalid price %q: %w", record[2], err)
	}

	p := productPayload{
		Name:     strings.TrimSpace(record[0]),
		Quantity: quantity,
		Price:    price,
	}
	if len(record) > 3 {
		p.Category = strings.TrimSpace(record[3])
	}
	return p, nil
}

func postProduct(client *http.Client, addr string, p productPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}

	resp, err := client.Post(addr+"/api/products", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post product %q: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("product %q rejected: %s %s", p.Name, resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}
