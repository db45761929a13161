package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusride/campusride-backend/internal/models"
	"github.com/campusride/campusride-backend/pkg/utils"
	"gorm.io/gorm"
)

// Notice is one notification addressed to a user.
type Notice struct {
	UserID uint
	Kind   models.NotificationKind
	Type   string
	Title  string
	Body   string
	Data   map[string]string
}

// Notifier stores in-app notifications and fans them out to websockets and FCM.
// A nil Notifier drops every notice.
type Notifier struct {
	DB   *gorm.DB
	Hub  *Hub
	Push *PushSender
}

func NewNotifier(db *gorm.DB, hub *Hub, push *PushSender) *Notifier {
	return &Notifier{DB: db, Hub: hub, Push: push}
}

// Notify persists the notice, then delivers it live and as a push.
// Delivery failures are logged; only the insert fails the call.
func (n *Notifier) Notify(ctx context.Context, notice Notice) error {
	if n == nil {
		return nil
	}

	record := &models.Notification{
		UserID: notice.UserID,
		Kind:   notice.Kind,
		Type:   notice.Type,
		Title:  notice.Title,
		Body:   notice.Body,
		Data:   notice.Data,
	}
	if err := n.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	if n.Hub != nil {
		if err := n.Hub.SendNotification(ctx, record); err != nil {
			utils.LogEvent("", "notify", "websocket", err.Error())
		}
	}

	if n.Push.Enabled() {
		if err := n.push(ctx, notice); err != nil {
			utils.LogEvent("", "notify", "push", err.Error())
		}
	}
	return nil
}

// NotifyAll dispatches the same notice to several users.
func (n *Notifier) NotifyAll(ctx context.Context, userIDs []uint, notice Notice) {
	notices := make([]Notice, 0, len(userIDs))
	for _, id := range userIDs {
		addressed := notice
		addressed.UserID = id
		notices = append(notices, addressed)
	}
	n.Dispatch(ctx, notices...)
}

func (n *Notifier) push(ctx context.Context, notice Notice) error {
	var user models.User
	if err := n.DB.WithContext(ctx).Select("id", "fcm_token").First(&user, notice.UserID).Error; err != nil {
		return fmt.Errorf("load user %d: %w", notice.UserID, err)
	}
	if user.FCMToken == "" {
		return nil
	}

	var prefs *models.NotificationPreference
	var stored models.NotificationPreference
	err := n.DB.WithContext(ctx).Where("user_id = ?", notice.UserID).First(&stored).Error
	switch {
	case err == nil:
		prefs = &stored
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.AllowsPush(notice.Kind) {
		return nil
	}

	data := make(map[string]interface{}, len(notice.Data)+1)
	for k, v := range notice.Data {
		data[k] = v
	}
	data["type"] = notice.Type

	return n.Push.SendToToken(ctx, user.FCMToken, NotificationPayload{
		Title: notice.Title,
		Body:  notice.Body,
		Data:  data,
		Tag:   notice.Type,
	})
}

// Dispatch delivers notices in the background, detached from the request's cancellation.
func (n *Notifier) Dispatch(ctx context.Context, notices ...Notice) {
	if n == nil || len(notices) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		for _, notice := range notices {
			if err := n.Notify(ctx, notice); err != nil {
				utils.LogEvent("", "notify", notice.Type, err.Error())
			}
		}
	}()
}

// BookingChanged pushes a live booking update to the passenger and the driver.
// A zero driverID skips the driver.
func (n *Notifier) BookingChanged(ctx context.Context, booking *models.Booking, driverID uint) {
	if n == nil || n.Hub == nil {
		return
	}
	update := BookingUpdate{BookingID: booking.ID, TripID: booking.TripID, Status: booking.Status}
	for _, userID := range []uint{booking.PassengerID, driverID} {
		if userID == 0 {
			continue
		}
		if err := n.Hub.SendBookingUpdate(ctx, userID, update); err != nil {
			utils.LogEvent("", "notify", "booking_update", err.Error())
		}
	}
}

// TripChanged pushes a live trip update to each listed passenger.
func (n *Notifier) TripChanged(ctx context.Context, trip *models.Trip, passengerIDs []uint) {
	if n == nil || n.Hub == nil {
		return
	}
	update := TripUpdate{TripID: trip.ID, Status: trip.Status}
	for _, userID := range passengerIDs {
		if err := n.Hub.SendTripUpdate(ctx, userID, update); err != nil {
			utils.LogEvent("", "notify", "trip_update", err.Error())
		}
	}
}
