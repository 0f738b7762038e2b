package services

import (
	"context"
	"log"
	"neuroTrackAPI/internal/types/notification"
	"sync"
	"time"

	"github.com/google/uuid"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type deviceTokenSource interface {
	deviceTokensFor(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error)
}

// NotificationDispatcher sends pushes from a small worker pool so request
// handlers never wait on the push provider.
type NotificationDispatcher struct {
	tokens       deviceTokenSource
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	wg           sync.WaitGroup

	providerMu sync.RWMutex
	mu         sync.Mutex
	stopped    bool
}

type DispatchJob struct {
	UserID uuid.UUID
	Title  string
	Body   string
	Data   map[string]any
}

func NewNotificationDispatcher(tokens deviceTokenSource, workers int) *NotificationDispatcher {
	if workers < 1 {
		workers = 1
	}
	dispatcher := &NotificationDispatcher{
		tokens:   tokens,
		workers:  workers,
		jobQueue: make(chan *DispatchJob, 100),
	}

	dispatcher.startWorkers()
	return dispatcher
}

// Allow injecting the real FCM provider from main.go
func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.providerMu.Lock()
	defer d.providerMu.Unlock()
	d.pushProvider = provider
}

func (d *NotificationDispatcher) provider() PushNotificationProvider {
	d.providerMu.RLock()
	defer d.providerMu.RUnlock()
	return d.pushProvider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobQueue {
		d.processJob(job)
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider := d.provider()
	if provider == nil {
		log.Printf("Skipping push for user %s: no provider set", job.UserID)
		return
	}

	tokens, err := d.tokens.deviceTokensFor(ctx, job.UserID)
	if err != nil {
		log.Printf("Push failed for user %s: could not load device tokens: %v", job.UserID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	if err := provider.SendPush(ctx, tokens, job.Title, job.Body, job.Data); err != nil {
		log.Printf("Push failed for user %s: %v", job.UserID, err)
	}
}

// Dispatch queues a push. It gives up after a short wait when the queue is full.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}

	select {
	case d.jobQueue <- job:
		return true
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue push for user %s: queue full", job.UserID)
		return false
	}
}

// Stop drains the queue and waits for the workers to finish.
func (d *NotificationDispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	log.Println("Stopping notification dispatcher...")
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}
