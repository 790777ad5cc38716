package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seatbooking/internal/events"
	"seatbooking/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskUpsert       = "upsert"
	TaskDelete       = "delete"
	TaskUpdateStatus = "update_status"
)

// SheetsClient is the spreadsheet mirror the worker writes to.
type SheetsClient interface {
	UpsertBooking(ctx context.Context, b *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID string) error
	UpdateBookingStatus(ctx context.Context, b *models.Booking) error
}

// SyncQueue persists tasks so they survive restarts; *database.DB implements it.
type SyncQueue interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// sheetTaskPayload is persisted in SyncTask.Payload as JSON.
type sheetTaskPayload struct {
	Booking *models.Booking `json:"booking"`
}

// SheetsWorker mirrors booking lifecycle events into Google Sheets. Tasks
// are stored in sync_queue first and handed over through Redis when
// available, or an in-memory channel otherwise; the table is polled as the
// last resort so nothing is lost if both are empty.
type SheetsWorker struct {
	queueStore    SyncQueue
	sheets        SheetsClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	now           func() time.Time
	logger        *zerolog.Logger
}

func NewSheetsWorker(queueStore SyncQueue, sheets SheetsClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SheetsWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &SheetsWorker{
		queueStore:    queueStore,
		sheets:        sheets,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan models.SyncTask, 128),
		redisQueueKey: "sheets:queue",
		deadLetterKey: "sheets:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		now:           time.Now,
		logger:        logger,
	}
}

// taskForEvent maps a lifecycle event to the sheet operation that mirrors it.
func taskForEvent(eventType string) (string, bool) {
	switch eventType {
	case events.EventBookingCreated, events.EventBookingUpdated,
		events.EventReminderSent, events.EventTimeAlertSent:
		return TaskUpsert, true
	case events.EventBookingCancelled, events.EventBookingArrived, events.EventBookingNoShow,
		events.EventBookingAutoCancelled, events.EventBookingCompleted:
		return TaskUpdateStatus, true
	case events.EventBookingDeleted:
		return TaskDelete, true
	}
	return "", false
}

// HandleEvent is an events.EventHandler that queues the matching sheet task.
func (w *SheetsWorker) HandleEvent(ctx context.Context, ev *events.Event) error {
	taskType, ok := taskForEvent(ev.Type)
	if !ok {
		return nil
	}
	payload, err := ev.Decode()
	if err != nil {
		return fmt.Errorf("decode %s event: %w", ev.Type, err)
	}
	return w.EnqueueTask(ctx, taskType, &payload.Booking)
}

// EnqueueTask persists the task and schedules it via Redis or the local queue.
func (w *SheetsWorker) EnqueueTask(ctx context.Context, taskType string, b *models.Booking) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if b == nil || b.ID == "" {
		return errors.New("booking id is required")
	}

	payloadBytes, err := json.Marshal(sheetTaskPayload{Booking: b})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.SyncTask{
		TaskType:  taskType,
		BookingID: b.ID,
		Payload:   string(payloadBytes),
		Status:    models.SyncStatusPending,
	}
	if err := w.queueStore.CreateSyncTask(ctx, &task); err != nil {
		return fmt.Errorf("persist sync task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("sheets worker: redis push failed, using memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("sheets worker: memory queue full, task left for polling")
	}
	return nil
}

// Start processes tasks until ctx is done.
func (w *SheetsWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sheets worker started")
	defer w.logger.Info().Msg("sheets worker stopped")

	for ctx.Err() == nil {
		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}
		if n := w.ProcessPending(ctx); n == 0 {
			w.sleep(ctx, w.pollInterval)
		}
	}
}

// ProcessPending runs one batch of due tasks from the table and returns how
// many were attempted.
func (w *SheetsWorker) ProcessPending(ctx context.Context) int {
	tasks, err := w.queueStore.GetPendingSyncTasks(ctx, w.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("sheets worker: fetch pending tasks")
		}
		return 0
	}
	for i := range tasks {
		w.processTask(ctx, &tasks[i])
	}
	return len(tasks)
}

func (w *SheetsWorker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *SheetsWorker) tryLocalQueue() (models.SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.SyncTask{}, false
	}
}

func (w *SheetsWorker) tryRedis(ctx context.Context) (models.SyncTask, bool) {
	if w.redis == nil {
		return models.SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("sheets worker: redis BRPOP")
		}
		return models.SyncTask{}, false
	}
	if len(res) != 2 {
		return models.SyncTask{}, false
	}
	var task models.SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("sheets worker: decode redis task")
		return models.SyncTask{}, false
	}
	return task, true
}

func (w *SheetsWorker) processTask(ctx context.Context, task *models.SyncTask) {
	var payload sheetTaskPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.handleSheetTask(ctx, task.TaskType, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.queueStore.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusCompleted, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker: mark completed")
	}
}

func (w *SheetsWorker) handleSheetTask(ctx context.Context, taskType string, payload sheetTaskPayload) error {
	if payload.Booking == nil || payload.Booking.ID == "" {
		return errors.New("booking payload missing")
	}
	switch taskType {
	case TaskUpsert:
		return w.sheets.UpsertBooking(ctx, payload.Booking)
	case TaskDelete:
		return w.sheets.DeleteBookingRow(ctx, payload.Booking.ID)
	case TaskUpdateStatus:
		return w.sheets.UpdateBookingStatus(ctx, payload.Booking)
	default:
		return fmt.Errorf("unknown task type: %s", taskType)
	}
}

func (w *SheetsWorker) retryOrFail(ctx context.Context, task *models.SyncTask, cause error) {
	attempt := task.RetryCount + 1
	if w.retryPolicy.Exhausted(attempt) {
		w.logger.Error().Err(cause).Int64("task_id", task.ID).Str("booking_id", task.BookingID).Msg("sheets worker: task failed permanently")
		w.failTask(ctx, task, cause)
		return
	}

	next := w.now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.queueStore.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker: mark retry")
	}
}

func (w *SheetsWorker) failTask(ctx context.Context, task *models.SyncTask, cause error) {
	if err := w.queueStore.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker: mark failed")
	}
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("sheets worker: dead letter push")
		}
	}
}

func (w *SheetsWorker) pushRedis(ctx context.Context, key string, task models.SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
