package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/marmos91/botkit/internal/logger"
	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/dispatch"
	"github.com/marmos91/botkit/pkg/models"
	"github.com/marmos91/botkit/pkg/objectstore"
	"github.com/marmos91/botkit/pkg/store"
)

// Job names.
const (
	JobRemindUsers    = "remind-users"
	JobSyncItems      = "sync-items"
	JobExportSnapshot = "export-snapshot"
)

// RemindUsers reminds users who have been inactive for the configured period.
func RemindUsers(reminder *dispatch.Reminder) JobFunc {
	return func(ctx context.Context) error {
		report, err := reminder.Run(ctx)
		if report != nil {
			logger.InfoCtx(ctx, "Reminder run finished",
				logger.KeyRecipients, len(report.Outcomes),
				logger.KeyDelivered, report.Delivered,
				logger.KeyFailed, report.Failed,
				"aborted", report.Aborted,
			)
		}
		return err
	}
}

// ItemLister lists stored items.
type ItemLister interface {
	ListItems(ctx context.Context, opts store.ListOptions) ([]*models.Item, error)
}

// ItemPusher bulk-creates items in the external API.
type ItemPusher interface {
	BulkCreate(ctx context.Context, items []apiclient.Item) error
}

// SyncItems pushes every stored item to the external API.
func SyncItems(items ItemLister, remote ItemPusher) JobFunc {
	return func(ctx context.Context) error {
		stored, err := items.ListItems(ctx, store.ListOptions{})
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if len(stored) == 0 {
			logger.DebugCtx(ctx, "No items to sync")
			return nil
		}

		batch := make([]apiclient.Item, len(stored))
		for i, item := range stored {
			batch[i] = apiclient.ItemFromModel(item)
		}
		if err := remote.BulkCreate(ctx, batch); err != nil {
			return fmt.Errorf("bulk create %d items: %w", len(batch), err)
		}

		logger.InfoCtx(ctx, "Items synced", "items", len(batch))
		return nil
	}
}

// SnapshotSource provides the data exported by the snapshot job.
type SnapshotSource interface {
	ListUsers(ctx context.Context, opts store.ListOptions) ([]*models.User, error)
	ItemLister
}

// Snapshot is the exported document.
type Snapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Users       []*models.User `json:"users"`
	Items       []*models.Item `json:"items"`
}

// SnapshotKey is the object key of a snapshot taken at t.
func SnapshotKey(t time.Time) string {
	return "snapshots/" + t.UTC().Format("2006/01/02/150405") + ".json"
}

// ExportSnapshot uploads a JSON snapshot of users and items.
func ExportSnapshot(src SnapshotSource, uploader objectstore.Uploader) JobFunc {
	return func(ctx context.Context) error {
		users, err := src.ListUsers(ctx, store.ListOptions{})
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		items, err := src.ListItems(ctx, store.ListOptions{})
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}

		snap := Snapshot{GeneratedAt: time.Now().UTC(), Users: users, Items: items}
		body, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}

		key := SnapshotKey(snap.GeneratedAt)
		if err := uploader.Put(ctx, key, body, "application/json"); err != nil {
			return err
		}

		logger.InfoCtx(ctx, "Snapshot exported", "key", key, "users", len(users), "items", len(items))
		return nil
	}
}
