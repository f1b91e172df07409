package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"storefront_pay/internal/services"
)

func main() {
	channel := flag.String("channel", "whatsapp", "Channel to test: whatsapp or email")
	to := flag.String("to", "", "Phone number, WhatsApp group id or email address")
	msg := flag.String("msg", "Test receipt from storefront_pay", "Message body")
	flag.Parse()

	if *to == "" {
		log.Fatal("Please provide a recipient using -to flag")
	}

	// Load envs
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var err error
	switch *channel {
	case "whatsapp":
		log.Printf("Sending WhatsApp message to %s", *to)
		err = services.NewWahaService().SendMessage(ctx, *to, *msg)
	case "email":
		email := services.NewEmailService()
		if !email.Configured() {
			log.Fatal("SMTP_HOST, SMTP_PORT, SMTP_USER and SMTP_PASS must be set")
		}
		log.Printf("Sending email to %s", *to)
		err = email.SendEmail([]string{*to}, "Test receipt", *msg)
	default:
		log.Fatalf("Unknown channel %q", *channel)
	}
	if err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	log.Println("Message sent successfully!")
}
