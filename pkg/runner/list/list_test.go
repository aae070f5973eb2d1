package list

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/printers"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

func TestListProjectsAndPrintsJSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := remote.New(item.KindNote, store.NewMemory())
	for _, title := range []string{"banana", "Apple", "cherry"} {
		_, err := client.Create(ctx, "alice", item.Draft{Title: title, Body: title})
		require.NoError(t, err)
	}
	_, err := client.Create(ctx, "bob", item.Draft{Title: "not mine", Body: "about not mine"})
	require.NoError(t, err)

	var out bytes.Buffer
	l := &List{
		Env:     &runner.Env{Owner: "alice", Client: client, Log: zap.NewNop()},
		View:    projector.Options{Sort: collection.SortAZ},
		JSON:    true,
		Printer: &printers.PrettyPrint{Out: &out},
	}
	require.NoError(t, l.Do(ctx))

	var got []item.Item
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	titles := make([]string, 0, len(got))
	for _, it := range got {
		titles = append(titles, it.Title)
	}
	require.Equal(t, []string{"Apple", "banana", "cherry"}, titles)
}

func TestListWithoutClient(t *testing.T) {
	l := &List{}
	require.Error(t, l.Do(context.Background()))
}
