package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"mentor-ai/internal/model"
)

var errInvalidTurn = errors.New("invalid transcript turn")

type MessageSink interface {
	Create(message *model.Message) error
}

// TranscriptArchiveWorker drains the transcript queue into the archive table.
type TranscriptArchiveWorker struct {
	conn   *amqp.Connection
	sink   MessageSink
	queue  string
	logger *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscriptArchiveWorker(conn *amqp.Connection, sink MessageSink, queue string, logger *slog.Logger) *TranscriptArchiveWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TranscriptArchiveWorker{
		conn:   conn,
		sink:   sink,
		queue:  queue,
		logger: logger.With("component", "transcript_archive"),
	}
}

func (w *TranscriptArchiveWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(16, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				if err := w.handle(d.Body); err != nil {
					w.logger.Error("archive transcript turn failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("worker started", "queue", w.queue)
	return nil
}

func (w *TranscriptArchiveWorker) handle(body []byte) error {
	var msg model.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode transcript turn failed: %w", err)
	}
	if strings.TrimSpace(msg.SessionID) == "" || msg.Role == "" {
		return errInvalidTurn
	}
	msg.ID = 0
	return w.sink.Create(&msg)
}

func (w *TranscriptArchiveWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
