package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ledgerscan/intake/internal/core/domain"
	"github.com/ledgerscan/intake/internal/core/ports"
	"github.com/ledgerscan/intake/internal/infrastructure/resilience"
)

const queueGroup = "intake-workers"

// Queue carries upload events over NATS, one subject per media kind.
// Delivery is at-least-once from the application's point of view: a
// redelivered event simply runs the pipeline again.
type Queue struct {
	conn            *nats.Conn
	documentSubject string
	audioSubject    string
	executor        *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, documentSubject, audioSubject string) (*Queue, error) {
	return NewWithOptions(url, documentSubject, audioSubject, Options{})
}

func NewWithOptions(url, documentSubject, audioSubject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("ledgerscan-intake"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:            conn,
		documentSubject: documentSubject,
		audioSubject:    audioSubject,
		executor:        options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishDocumentUploaded(ctx context.Context, evt domain.UploadEvent) error {
	return q.publish(ctx, q.documentSubject, evt)
}

func (q *Queue) PublishAudioUploaded(ctx context.Context, evt domain.UploadEvent) error {
	return q.publish(ctx, q.audioSubject, evt)
}

func (q *Queue) publish(ctx context.Context, subject string, evt domain.UploadEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}

	call := func(context.Context) error {
		if err := q.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// Subscribe consumes both upload subjects in a shared queue group until ctx
// is cancelled, then drains. Handler errors are logged and dropped here; the
// handlers themselves persist failure outcomes.
func (q *Queue) Subscribe(ctx context.Context, onDocument, onAudio ports.UploadHandler) error {
	subs := make([]*nats.Subscription, 0, 2)
	for _, binding := range []struct {
		subject string
		handler ports.UploadHandler
	}{
		{q.documentSubject, onDocument},
		{q.audioSubject, onAudio},
	} {
		handler := binding.handler
		sub, err := q.conn.QueueSubscribe(binding.subject, queueGroup, func(msg *nats.Msg) {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}

			var evt domain.UploadEvent
			if err := json.Unmarshal(msg.Data, &evt); err != nil {
				slog.Error("malformed upload event", "subject", msg.Subject, "error", err)
				return
			}

			handlerCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			if err := handler(handlerCtx, evt); err != nil {
				slog.Error("upload handler error",
					"subject", msg.Subject,
					"document_id", evt.DocumentID,
					"error", err,
				)
			}
		})
		if err != nil {
			return fmt.Errorf("nats subscribe %s: %w", binding.subject, err)
		}
		subs = append(subs, sub)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			return fmt.Errorf("nats drain subscription: %w", err)
		}
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}
