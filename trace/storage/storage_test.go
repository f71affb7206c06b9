package storage_test

import (
	"context"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/sregame/trace"
	"github.com/m-mizutani/sregame/trace/storage"
	"google.golang.org/api/option"
)

func newClient(t *testing.T) *gcs.Client {
	t.Helper()
	client, err := gcs.NewClient(context.Background(), option.WithoutAuthentication())
	gt.NoError(t, err)
	return client
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := storage.New(context.Background(), "", storage.WithClient(newClient(t)))
	gt.Error(t, err)
}

func TestObjectName(t *testing.T) {
	ctx := context.Background()

	t.Run("without prefix", func(t *testing.T) {
		repo, err := storage.New(ctx, "bucket", storage.WithClient(newClient(t)))
		gt.NoError(t, err)
		defer func() { _ = repo.Close() }()
		gt.Equal(t, repo.ObjectName("abc"), "abc.json")
	})

	t.Run("with prefix", func(t *testing.T) {
		repo, err := storage.New(ctx, "bucket",
			storage.WithClient(newClient(t)),
			storage.WithPrefix("traces/"),
		)
		gt.NoError(t, err)
		defer func() { _ = repo.Close() }()
		gt.Equal(t, repo.ObjectName("abc"), "traces/abc.json")
	})
}

func TestImplementsRepository(t *testing.T) {
	repo, err := storage.New(context.Background(), "bucket", storage.WithClient(newClient(t)))
	gt.NoError(t, err)
	var _ trace.Repository = repo
}
