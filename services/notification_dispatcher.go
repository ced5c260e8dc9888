package services

import (
	"context"
	"sync"
	"time"

	"timeWalletAPI/internal/types/notification"
	"timeWalletAPI/utils"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher pushes stored notifications out to devices through
// a small worker pool, so request handlers never wait on FCM.
type NotificationDispatcher struct {
	service      *NotificationService
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *notification.Notification
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5,
		jobQueue: make(chan *notification.Notification, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()
	return dispatcher
}

// SetPushProvider injects the real FCM provider; without one, dispatch is a
// DB-only no-op and notifications stay in-app.
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case notif := <-d.jobQueue:
			d.processJob(notif)
		case <-d.stopChan:
			return
		}
	}
}

// DispatchNotification queues a notification for push delivery. A full queue
// drops the push, never blocks the caller.
func (d *NotificationDispatcher) DispatchNotification(ctx context.Context, notif *notification.Notification) {
	if notif == nil || d.pushProvider == nil {
		return
	}

	select {
	case d.jobQueue <- notif:
	default:
		utils.Sugar.Warnf("Notification dispatch queue full, dropping push for %s", notif.ID)
	}
}

func (d *NotificationDispatcher) processJob(notif *notification.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens, err := d.service.getDeviceTokens(ctx, notif.UserID)
	if err != nil {
		utils.Sugar.Errorf("Failed to load device tokens for %s: %v", notif.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := d.pushProvider.SendPush(ctx, tokens, notif.Title, notif.Message, notif.Data); err != nil {
		utils.Sugar.Errorf("Push delivery failed for notification %s: %v", notif.ID, err)
	}
}

// Stop drains the worker pool. Used by tests and shutdown.
func (d *NotificationDispatcher) Stop() {
	close(d.stopChan)
	d.wg.Wait()
}
