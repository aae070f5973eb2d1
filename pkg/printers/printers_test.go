package printers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/jot/pkg/item"
)

func init() {
	color.NoColor = true
}

var now = time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)

func todo(id, title string, due *time.Time) item.Item {
	it := item.Item{ID: id, Kind: item.KindTodo, Title: title, UpdatedAt: item.At(now)}
	if due != nil {
		ts := item.At(*due)
		it.Extras.Due = &ts
	}
	return it
}

func TestItemsEmpty(t *testing.T) {
	var out bytes.Buffer
	pp := &PrettyPrint{Out: &out}
	pp.Items()
	if !strings.Contains(out.String(), "none") {
		t.Fatalf("expected none, got %q", out.String())
	}
}

func TestItemsShowsIDAndPreview(t *testing.T) {
	var out bytes.Buffer
	pp := &PrettyPrint{Out: &out, ShowID: true, Now: func() time.Time { return now }}
	note := item.Item{ID: "n1", Kind: item.KindNote, Title: "groceries", Body: "milk\neggs", Favorite: true}
	pp.Items(note)

	got := out.String()
	for _, want := range []string{"n1", "groceries", "★", "milk"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "eggs") {
		t.Errorf("preview should only show the first line:\n%s", got)
	}
}

func TestJSON(t *testing.T) {
	var out bytes.Buffer
	pp := &PrettyPrint{Out: &out}
	if err := pp.JSON(); err != nil {
		t.Fatal(err)
	}
	var got []item.Item
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty array, got %#v", got)
	}
}

func TestAgendaListsDueDays(t *testing.T) {
	var out bytes.Buffer
	pp := &PrettyPrint{Out: &out, Now: func() time.Time { return now }}
	due := time.Date(2024, time.May, 21, 9, 0, 0, 0, time.UTC)
	pp.Agenda(now, todo("a", "dentist", &due), todo("b", "someday", nil))

	got := out.String()
	if !strings.Contains(got, "May") {
		t.Fatalf("missing month header:\n%s", got)
	}
	if !strings.Contains(got, "21 T  ") || !strings.Contains(got, "dentist") {
		t.Fatalf("missing due entry:\n%s", got)
	}
	if !strings.Contains(got, "No due date") || !strings.Contains(got, "someday") {
		t.Fatalf("missing open todos:\n%s", got)
	}
}

func TestDaysIn(t *testing.T) {
	if got := DaysIn(time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)); got != 29 {
		t.Fatalf("expected 29, got %d", got)
	}
	if got := NextMonth(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC)); got.Month() != time.January || got.Year() != 2025 {
		t.Fatalf("unexpected next month %v", got)
	}
}

func TestDetailPlainBody(t *testing.T) {
	var out bytes.Buffer
	pp := &PrettyPrint{Out: &out, Width: 20}
	it := item.Item{ID: "n1", Kind: item.KindNote, Title: "t", Body: "one two three four five six", UpdatedAt: item.At(now)}
	pp.Detail(it)
	got := out.String()
	if !strings.Contains(got, "    one two three") {
		t.Fatalf("expected wrapped, indented body:\n%s", got)
	}
}
