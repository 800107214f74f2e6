package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/docs-extractor/constants"
	"github.com/joseph-ayodele/docs-extractor/internal/common"
	"github.com/joseph-ayodele/docs-extractor/internal/entity"
)

func TestConnectStore_ReloadsAndResetsInterrupted(t *testing.T) {
	ctx := context.Background()
	cfg := common.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "results.db")}

	store, db, err := ConnectStore(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	done := store.Add(ctx, entity.NewFileRef("/docs/done.pdf"), "invoice")
	busy := store.Add(ctx, entity.NewFileRef("/docs/busy.pdf"), "invoice")
	if _, err := store.Start(ctx, done.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Fail(ctx, done.ID, "boom", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Start(ctx, busy.ID); err != nil {
		t.Fatal(err)
	}
	if err := PingDB(ctx, db, quietLogger(), 0); err != nil {
		t.Fatal(err)
	}
	CloseDB(db, quietLogger())

	store, db, err = ConnectStore(ctx, cfg, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer CloseDB(db, quietLogger())

	got, err := store.Get(done.ID)
	if err != nil || got.Status != constants.StatusError || got.Error != "boom" {
		t.Errorf("done = %+v, %v", got, err)
	}
	got, err = store.Get(busy.ID)
	if err != nil || got.Status != constants.StatusPending {
		t.Errorf("busy = %+v, %v", got, err)
	}
}

func TestConnectStore_Memory(t *testing.T) {
	store, db, err := ConnectStore(context.Background(), common.StoreConfig{Driver: "memory"}, quietLogger())
	if err != nil || store == nil || db != nil {
		t.Fatalf("store=%v db=%v err=%v", store, db, err)
	}
}
