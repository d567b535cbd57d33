package objectstore

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/foodiary/foodiary-api/internal/config"
	"github.com/foodiary/foodiary-api/internal/events"
	"github.com/foodiary/foodiary-api/internal/task"
)

// uploadEventPayload mirrors the meal processing task payload.
type uploadEventPayload struct {
	FileKey string `json:"file_key"`
}

// UploadNotifier listens for object-created notifications on the bucket and
// emits a task request for every completed upload under the upload prefix.
// Keys outside the prefix are ignored.
type UploadNotifier struct {
	store   *MinioStore
	prefix  string
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewUploadNotifier creates a notifier bound to the given store and emitter.
func NewUploadNotifier(
	store *MinioStore,
	cfg config.StorageConfig,
	emitter events.EventEmitter,
	logger *slog.Logger,
) *UploadNotifier {
	return &UploadNotifier{
		store:   store,
		prefix:  cfg.UploadPrefix,
		emitter: emitter,
		logger:  logger.With("component", "upload_notifier"),
	}
}

// Run consumes bucket notifications until the context is cancelled. The
// listen stream is re-established after transient errors.
func (n *UploadNotifier) Run(ctx context.Context) {
	n.logger.Info("starting upload notification listener",
		"bucket", n.store.bucket,
		"prefix", n.prefix)

	for {
		if ctx.Err() != nil {
			n.logger.Info("upload notification listener stopped")
			return
		}

		ch := n.store.client.ListenBucketNotification(
			ctx, n.store.bucket, n.prefix, "", []string{"s3:ObjectCreated:*"})

		for info := range ch {
			if info.Err != nil {
				n.logger.Error("notification stream error", "error", info.Err)
				break
			}

			for _, record := range info.Records {
				n.handleRecord(ctx, record.S3.Object.Key)
			}
		}

		// Back off briefly before re-establishing the stream.
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
	}
}

// handleRecord emits a meal processing request for one notification record.
func (n *UploadNotifier) handleRecord(ctx context.Context, rawKey string) {
	key, err := decodeObjectKey(rawKey)
	if err != nil {
		n.logger.Error("failed to decode object key", "raw_key", rawKey, "error", err)
		return
	}

	if !strings.HasPrefix(key, n.prefix) {
		n.logger.Debug("ignoring object outside upload prefix", "key", key)
		return
	}

	event, err := events.NewTaskRequestEvent(
		task.TaskTypeMealProcessing,
		uploadEventPayload{FileKey: key},
	)
	if err != nil {
		n.logger.Error("failed to build task request event", "key", key, "error", err)
		return
	}

	if err := n.emitter.EmitEvent(ctx, event); err != nil {
		n.logger.Error("failed to emit upload event", "key", key, "error", err)
		return
	}

	n.logger.Info("upload completion dispatched", "key", key)
}

// decodeObjectKey reverses the URL encoding bucket notifications apply to
// object keys.
func decodeObjectKey(raw string) (string, error) {
	return url.QueryUnescape(raw)
}
