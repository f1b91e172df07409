package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"storefront_pay/internal/config"
	"storefront_pay/internal/gateway"
)

type mockEvent struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	OrderID   string `json:"order_id,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	url := flag.String("url", "http://localhost:"+cfg.Port+"/api/payments/webhook/mock", "Webhook endpoint")
	paymentID := flag.String("payment_id", "", "Mock payment id, e.g. mock_pay_... (mandatory)")
	status := flag.String("status", "success", "Status to report: pending, success or failed")
	orderID := flag.String("order_id", "", "Order id (optional)")
	amount := flag.String("amount", "", "Amount (optional)")
	secret := flag.String("secret", cfg.MockGateway.WebhookSecret, "Webhook signing secret")
	flag.Parse()

	if *paymentID == "" {
		log.Fatal("Please provide a payment id using -payment_id flag")
	}

	payload, err := json.Marshal(mockEvent{PaymentID: *paymentID, Status: *status, OrderID: *orderID, Amount: *amount})
	if err != nil {
		log.Fatalf("Failed to encode payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Mock-Signature", gateway.SignPayload(payload, *secret))

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Failed to send webhook: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("%s\n%s\n", resp.Status, body)
	if resp.StatusCode >= 300 {
		log.Fatalf("Webhook rejected")
	}
}
