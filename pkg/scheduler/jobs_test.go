package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/botkit/pkg/apiclient"
	"github.com/marmos91/botkit/pkg/models"
	"github.com/marmos91/botkit/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeData struct {
	users []*models.User
	items []*models.Item
	err   error
}

func (f *fakeData) ListUsers(context.Context, store.ListOptions) ([]*models.User, error) {
	return f.users, f.err
}

func (f *fakeData) ListItems(context.Context, store.ListOptions) ([]*models.Item, error) {
	return f.items, f.err
}

type fakePusher struct {
	batches [][]apiclient.Item
	err     error
}

func (f *fakePusher) BulkCreate(_ context.Context, items []apiclient.Item) error {
	f.batches = append(f.batches, items)
	return f.err
}

type fakeUploader struct {
	key         string
	body        []byte
	contentType string
}

func (f *fakeUploader) Put(_ context.Context, key string, body []byte, contentType string) error {
	f.key, f.body, f.contentType = key, body, contentType
	return nil
}

func TestSyncItems(t *testing.T) {
	data := &fakeData{items: []*models.Item{
		{ID: 1, Title: "a", Type: models.ItemTypeOption1, UserID: 7, IsActive: true},
		{ID: 2, Title: "b", Type: models.ItemTypeOption2, UserID: 8},
	}}
	pusher := &fakePusher{}

	require.NoError(t, SyncItems(data, pusher)(context.Background()))
	require.Len(t, pusher.batches, 1)
	assert.Equal(t, "option_2", pusher.batches[0][1].ItemType)
	assert.Equal(t, int64(7), pusher.batches[0][0].UserID)
}

func TestSyncItemsNothingToDo(t *testing.T) {
	pusher := &fakePusher{}
	require.NoError(t, SyncItems(&fakeData{}, pusher)(context.Background()))
	assert.Empty(t, pusher.batches)
}

func TestSyncItemsErrors(t *testing.T) {
	err := SyncItems(&fakeData{err: errors.New("db down")}, &fakePusher{})(context.Background())
	assert.ErrorContains(t, err, "db down")

	pusher := &fakePusher{err: apiclient.ErrServer}
	err = SyncItems(&fakeData{items: []*models.Item{{ID: 1}}}, pusher)(context.Background())
	assert.ErrorIs(t, err, apiclient.ErrServer)
}

func TestExportSnapshot(t *testing.T) {
	data := &fakeData{
		users: []*models.User{{ID: 1, FirstName: "Ann"}},
		items: []*models.Item{{ID: 3, Title: "thing"}},
	}
	up := &fakeUploader{}

	require.NoError(t, ExportSnapshot(data, up)(context.Background()))
	assert.True(t, strings.HasPrefix(up.key, "snapshots/"))
	assert.True(t, strings.HasSuffix(up.key, ".json"))
	assert.Equal(t, "application/json", up.contentType)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(up.body, &snap))
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Ann", snap.Users[0].FirstName)
	assert.Equal(t, "thing", snap.Items[0].Title)
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "snapshots/2026/10/19/090507.json", SnapshotKey(at))
}
