package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/Wuchinator/visitor-dashboard/internal/dashboard"
	"github.com/Wuchinator/visitor-dashboard/internal/visitor"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	collectorURL := flag.String("collector", "http://localhost:8081", "collector service base URL")
	dashboardURL := flag.String("dashboard", "http://localhost:8080", "dashboard service base URL")
	healthAddr := flag.String("health", "localhost:50052", "dashboard gRPC health address")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	conn, err := grpc.NewClient(*healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	healthResp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "dashboard-service"})
	cancel()
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Printf("Health check: %s\n\n", healthResp.Status)

	sessionID := uuid.New().String()
	now := time.Now().UTC()
	visits := []visitor.TrackRequest{
		{
			Timestamp: now.Format(time.RFC3339),
			PageURL:   "/",
			Location:  `{"city":"Kigali","country":"Rwanda"}`,
			Country:   "Rwanda",
			City:      "Kigali",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36",
			SessionID: sessionID,
		},
		{
			Timestamp: now.Add(-26 * time.Hour).Format(time.RFC3339),
			PageURL:   "/tours",
			Country:   "Kenya",
			City:      "Nairobi",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			SessionID: sessionID,
		},
		{
			Timestamp: now.Add(-72 * time.Hour).Format(time.RFC3339),
			PageURL:   "/tours/gorilla-trekking",
			Referrer:  "https://www.google.com/",
			SessionID: uuid.New().String(),
		},
	}

	fmt.Println("Sending visits")
	for _, v := range visits {
		var resp struct {
			EventID string `json:"eventId"`
		}
		if err := postJSON(client, *collectorURL+"/api/v1/visits", v, &resp); err != nil {
			log.Fatalf("Failed to track visit: %v", err)
		}
		fmt.Printf("Visit tracked: %s %s\n", resp.EventID, v.PageURL)
	}

	// ingestion is asynchronous
	time.Sleep(2 * time.Second)

	for _, sel := range []string{"today", "week", "all"} {
		var result dashboard.Result
		if err := getJSON(client, *dashboardURL+"/api/v1/dashboard?range="+sel, &result); err != nil {
			log.Fatalf("Failed to load dashboard: %v", err)
		}
		printResult(result)
	}

	fmt.Println("\nAll requests completed successfully!")
}

func printResult(r dashboard.Result) {
	fmt.Printf("\nRange %s: %d visits, %d unique visitors\n", r.Selector, r.Summary.Total, r.Summary.UniqueVisitors)
	for _, b := range r.Summary.PerDay {
		fmt.Printf("   %-10s %s: %d\n", b.Label, b.Date, b.Count)
	}
	for i, c := range r.Summary.TopCountries {
		fmt.Printf("   %d. %s: %d\n", i+1, c.Country, c.Count)
	}
	for _, v := range r.RecentVisits {
		fmt.Printf("   - %s | %s | %s | %s\n", v.Timestamp, v.Location, v.Page, v.Browser)
	}
}

func postJSON(client *http.Client, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("POST %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
