package app

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/muesli/reflow/ansi"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/collection/projector"
	"tableflip.dev/jot/pkg/collection/selection"
	"tableflip.dev/jot/pkg/collection/viewmodel"
	"tableflip.dev/jot/pkg/item"
	"tableflip.dev/jot/pkg/remote"
	"tableflip.dev/jot/pkg/runner"
	"tableflip.dev/jot/pkg/store"
)

func newTestModel(t *testing.T, kind item.Kind, titles ...string) (*Model, *remote.Client) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client := remote.New(kind, store.NewMemory())
	for _, title := range titles {
		if _, err := client.Create(ctx, "alice", item.Draft{Title: title, Body: title}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	vm := viewmodel.New(client, viewmodel.WithView(projector.Options{Sort: collection.SortAZ}))
	t.Cleanup(vm.Close)
	if err := runner.Mount(ctx, vm, "alice"); err != nil {
		t.Fatalf("mount: %v", err)
	}
	m := New(ctx, vm, kind)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, client
}

// plain drops escape sequences so assertions see the rendered text.
func plain(s string) string {
	var b strings.Builder
	inSeq := false
	for _, r := range s {
		if r == ansi.Marker {
			inSeq = true
			continue
		}
		if inSeq {
			if ansi.IsTerminator(r) {
				inSeq = false
			}
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func typeText(t *testing.T, m *Model, s string) {
	t.Helper()
	for _, r := range s {
		press(t, m, tea.KeyPressMsg{Text: string(r), Code: r})
	}
}

func key(s string) tea.KeyPressMsg {
	r := []rune(s)[0]
	return tea.KeyPressMsg{Text: s, Code: r}
}

func press(t *testing.T, m *Model, msg tea.KeyPressMsg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func TestViewListsItems(t *testing.T) {
	m, _ := newTestModel(t, item.KindNote, "beta", "alpha")
	view := plain(m.View())
	if !strings.Contains(view, "Notes") {
		t.Fatalf("missing title:\n%s", view)
	}
	if strings.Index(view, "alpha") > strings.Index(view, "beta") {
		t.Fatalf("expected az order:\n%s", view)
	}
}

func TestFavoriteKeyTogglesCurrent(t *testing.T) {
	m, client := newTestModel(t, item.KindNote, "alpha")
	cmd := press(t, m, key("f"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if done.err != nil {
		t.Fatalf("toggle failed: %v", done.err)
	}
	m.Update(done)

	got, err := client.Get(context.Background(), "alice", m.items[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Favorite {
		t.Fatal("expected favorite")
	}
}

func TestSpaceStartsSelectionAndEscCancels(t *testing.T) {
	m, _ := newTestModel(t, item.KindNote, "alpha", "beta")
	press(t, m, tea.KeyPressMsg{Code: tea.KeySpace, Text: " "})
	if m.vm.Mode() != selection.Selecting {
		t.Fatal("expected selecting")
	}
	if view := plain(m.View()); !strings.Contains(view, "1 selected") {
		t.Fatalf("expected selection count:\n%s", view)
	}

	press(t, m, tea.KeyPressMsg{Code: tea.KeyDown})
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if got := len(m.vm.Selected()); got != 2 {
		t.Fatalf("expected 2 selected, got %d", got)
	}

	press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.vm.Mode() != selection.Normal {
		t.Fatal("expected selection cleared")
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	m, _ := newTestModel(t, item.KindTodo, "alpha")
	press(t, m, key("d"))
	if m.mode != modeConfirm {
		t.Fatalf("expected confirm mode, got %v", m.mode)
	}
	press(t, m, key("n"))
	if m.mode != modeNormal || len(m.items) != 1 {
		t.Fatal("declining must keep the item")
	}

	press(t, m, key("d"))
	cmd := press(t, m, key("y"))
	if cmd == nil {
		t.Fatal("expected delete command")
	}
	m.Update(cmd())
	if len(m.items) != 0 {
		t.Fatalf("expected item removed, got %d", len(m.items))
	}
}

func TestSortKeyCycles(t *testing.T) {
	m, _ := newTestModel(t, item.KindNote, "alpha")
	press(t, m, key("s"))
	if got := m.vm.View().Sort; got != collection.SortAZ.Next() {
		t.Fatalf("unexpected sort %v", got)
	}
}

func TestEnterOpensDetail(t *testing.T) {
	m, _ := newTestModel(t, item.KindNote, "alpha")
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeDetail {
		t.Fatalf("expected detail mode, got %v", m.mode)
	}
	press(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.mode != modeNormal {
		t.Fatal("expected to return to the list")
	}
}

func TestAddNoteAsksForContent(t *testing.T) {
	m, client := newTestModel(t, item.KindNote)
	press(t, m, key("a"))
	typeText(t, m, "groceries")
	if cmd := press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Fatal("a note must not be created without content")
	}
	if m.mode != modeAddBody {
		t.Fatalf("expected content prompt, got %v", m.mode)
	}

	press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.mode != modeAddBody || !strings.Contains(plain(m.View()), "needs content") {
		t.Fatalf("blank content must be refused:\n%s", plain(m.View()))
	}

	typeText(t, m, "oat milk")
	cmd := press(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected create command")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("create failed: %+v", done)
	}

	sub, err := client.Subscribe(context.Background(), "alice")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	snap := <-sub.C()
	if len(snap.Items) != 1 || snap.Items[0].Title != "groceries" || snap.Items[0].Body != "oat milk" {
		t.Fatalf("unexpected items %+v", snap.Items)
	}
}
