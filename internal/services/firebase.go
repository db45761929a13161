package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PassengersTopic receives a push whenever a driver publishes a trip.
const PassengersTopic = "campusride-new-trips"

// PushSender sends FCM pushes. A sender without a client skips every send.
type PushSender struct {
	client *messaging.Client
}

// InitFirebase builds a PushSender from a service account file.
// An empty path disables push notifications.
func InitFirebase(ctx context.Context, serviceAccountPath string) (*PushSender, error) {
	if serviceAccountPath == "" {
		log.Println("Warning: FIREBASE_SERVICE_ACCOUNT_PATH not set. Push notifications will be disabled.")
		return &PushSender{}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}

	log.Println("Firebase Cloud Messaging initialized successfully")
	return &PushSender{client: client}, nil
}

func (p *PushSender) Enabled() bool {
	return p != nil && p.client != nil
}

type NotificationPayload struct {
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Image     string                 `json:"image,omitempty"`
	ChannelID string                 `json:"channelId,omitempty"`
	Sound     string                 `json:"sound,omitempty"`
	Priority  string                 `json:"priority,omitempty"`
	Tag       string                 `json:"tag,omitempty"`
}

// stringifyData converts payload data to the string map FCM requires.
func stringifyData(data map[string]interface{}) map[string]string {
	out := make(map[string]string, len(data))
	for key, value := range data {
		switch v := value.(type) {
		case string:
			out[key] = v
		case int, int64, uint, float64, bool:
			out[key] = fmt.Sprintf("%v", v)
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				log.Printf("Error marshaling data for key %s: %v", key, err)
				continue
			}
			out[key] = string(encoded)
		}
	}
	return out
}

func androidConfig(payload NotificationPayload) *messaging.AndroidConfig {
	channelID := payload.ChannelID
	if channelID == "" {
		channelID = "campusride_default"
	}
	sound := payload.Sound
	if sound == "" {
		sound = "default"
	}
	priority := messaging.PriorityHigh
	if payload.Priority == "normal" {
		priority = messaging.PriorityDefault
	}

	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:                 sound,
			ChannelID:             channelID,
			Priority:              priority,
			DefaultSound:          sound == "default",
			Icon:                  "ic_stat_logo",
			Color:                 "#1E88E5",
			Tag:                   payload.Tag,
			DefaultVibrateTimings: true,
		},
	}
}

func apnsConfig(payload NotificationPayload) *messaging.APNSConfig {
	sound := payload.Sound
	if sound == "" {
		sound = "default"
	}
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound:            sound,
				Badge:            &badge,
				MutableContent:   true,
				ContentAvailable: true,
			},
		},
	}
}

func buildMessage(payload NotificationPayload) *messaging.Message {
	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title:    payload.Title,
			Body:     payload.Body,
			ImageURL: payload.Image,
		},
		Data:    stringifyData(payload.Data),
		Android: androidConfig(payload),
		APNS:    apnsConfig(payload),
	}
	return message
}

// SendToToken pushes to a single device.
func (p *PushSender) SendToToken(ctx context.Context, token string, payload NotificationPayload) error {
	if !p.Enabled() {
		return nil
	}
	message := buildMessage(payload)
	message.Token = token

	response, err := p.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("error sending message: %w", err)
	}
	log.Printf("[PUSH] action=send msg=%s", response)
	return nil
}

// SendToTopic pushes to every device subscribed to the topic.
func (p *PushSender) SendToTopic(ctx context.Context, topic string, payload NotificationPayload) error {
	if !p.Enabled() {
		return nil
	}
	message := buildMessage(payload)
	message.Topic = topic

	if _, err := p.client.Send(ctx, message); err != nil {
		return fmt.Errorf("error sending topic message: %w", err)
	}
	return nil
}

func (p *PushSender) SubscribeToTopic(ctx context.Context, token, topic string) error {
	if !p.Enabled() {
		return nil
	}
	response, err := p.client.SubscribeToTopic(ctx, []string{token}, topic)
	if err != nil {
		return fmt.Errorf("error subscribing to topic: %w", err)
	}
	if response.FailureCount > 0 {
		return fmt.Errorf("subscribing to topic %s failed for %d tokens", topic, response.FailureCount)
	}
	return nil
}

func (p *PushSender) UnsubscribeFromTopic(ctx context.Context, token, topic string) error {
	if !p.Enabled() {
		return nil
	}
	if _, err := p.client.UnsubscribeFromTopic(ctx, []string{token}, topic); err != nil {
		return fmt.Errorf("error unsubscribing from topic: %w", err)
	}
	return nil
}
