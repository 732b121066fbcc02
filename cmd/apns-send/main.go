// apns-send pushes a single notification straight to the gateway,
// bypassing the daemon. Useful for checking credentials and device
// tokens.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"apnsd/apns"
)

func main() {
	teamID := flag.String("team", os.Getenv("APNS_TEAM_ID"), "Apple developer team id")
	keyID := flag.String("key-id", os.Getenv("APNS_KEY_ID"), "APNs auth key id")
	authKey := flag.String("auth-key", os.Getenv("APNS_AUTH_KEY"), "Path to the .p8 auth key")
	topic := flag.String("topic", "", "apns-topic (app bundle id)")
	device := flag.String("device", "", "Target device token")
	title := flag.String("title", "", "Alert title")
	body := flag.String("body", "", "Alert body")
	sound := flag.String("sound", "", "Sound name")
	background := flag.Bool("background", false, "Send a background (content-available) push")
	sandbox := flag.Bool("sandbox", false, "Use the sandbox gateway")
	flag.Parse()

	if *device == "" {
		log.Fatal("A device token is required (-device)")
	}

	key, err := apns.AuthKeyFromFile(*authKey)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}

	host := "production"
	if *sandbox {
		host = "development"
	}

	client, err := apns.NewClient(apns.Config{
		TeamID:         *teamID,
		KeyID:          *keyID,
		Signer:         apns.NewES256Signer(key),
		Host:           host,
		DefaultTopic:   *topic,
		RequestTimeout: 30 * time.Second,
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	n := apns.NewNotification(*device)
	if *background {
		n.PushType = apns.PushTypeBackground
		n.Priority = apns.PriorityThrottled
		n.ContentAvailable = true
	} else {
		n.Alert = &apns.Alert{Title: *title, Body: *body}
		n.Sound = *sound
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := client.Send(ctx, n); err != nil {
		log.Fatalf("Send failed: %v", err)
	}
	fmt.Println("delivered")
}
