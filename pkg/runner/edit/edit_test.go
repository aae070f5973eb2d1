package edit

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/blob"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

func TestEditTitle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client := remote.New(item.KindNote, store.NewMemory())
	it, err := client.Create(ctx, "alice", item.Draft{Title: "old", Body: "about old"})
	require.NoError(t, err)

	title := "new"
	var out bytes.Buffer
	e := &Edit{
		Env:     &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()},
		ID:      it.ID,
		Patch:   item.Patch{Title: &title},
		Printer: &printers.PrettyPrint{Out: &out},
	}
	require.NoError(t, e.Do(ctx))
	require.Contains(t, out.String(), "new")

	got, err := client.Get(ctx, "alice", it.ID)
	require.NoError(t, err)
	require.Equal(t, "new", got.Title)
}

func TestEditEmptyPatch(t *testing.T) {
	e := &Edit{Env: &runner.Env{Owner: "alice", Client: remote.New(item.KindNote, store.NewMemory()), Log: zap.NewNop()}, ID: "x"}
	err := e.Do(context.Background())
	require.Equal(t, item.ClassValidation, item.Classify(err))
}

func TestEditClearImageDeletesBlob(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir := t.TempDir()
	src := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(src, []byte("png"), 0o644))
	blobs, err := blob.NewLocal(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	client := remote.New(item.KindNote, store.NewMemory(), remote.WithBlobs(blobs))
	it, err := client.Create(ctx, "alice", item.Draft{Title: "with image", Body: "about with image"})
	require.NoError(t, err)
	url, err := blobs.Upload(ctx, "alice", it.ID, src)
	require.NoError(t, err)
	_, err = client.Update(ctx, "alice", it.ID, item.Patch{ImageURL: &url})
	require.NoError(t, err)

	e := &Edit{
		Env:     &runner.Env{Owner: "alice", Client: client, Blobs: blobs, Log: zap.NewNop()},
		ID:      it.ID,
		Patch:   item.Patch{ClearImage: true},
		Printer: &printers.PrettyPrint{Out: &bytes.Buffer{}},
	}
	require.NoError(t, e.Do(ctx))

	got, err := client.Get(ctx, "alice", it.ID)
	require.NoError(t, err)
	require.Empty(t, got.Image())
	require.ErrorIs(t, blobs.Delete(ctx, url), os.ErrNotExist)
}
