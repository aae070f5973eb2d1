package projector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"

	"tableflip.dev/jot/pkg/collection"
	"tableflip.dev/jot/pkg/item"
)

func at(n int) item.Timestamp {
	return item.At(time.Date(2024, 1, 1, 0, 0, n, 0, time.UTC))
}

func titles(items []item.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestSortStability(t *testing.T) {
	a := item.Item{ID: "A", Title: "b", UpdatedAt: at(2)}
	b := item.Item{ID: "B", Title: "a", UpdatedAt: at(2)}
	in := []item.Item{a, b}

	az := Project(in, Options{Sort: collection.SortAZ})
	assert.Equal(t, []string{"B", "A"}, []string{az[0].ID, az[1].ID})

	newest := Project(in, Options{Sort: collection.SortNewest})
	assert.Equal(t, []string{"A", "B"}, []string{newest[0].ID, newest[1].ID})

	oldest := Project(in, Options{Sort: collection.SortOldest})
	assert.Equal(t, []string{"A", "B"}, []string{oldest[0].ID, oldest[1].ID})
}

func TestSortOrders(t *testing.T) {
	in := []item.Item{
		{Title: "beta", UpdatedAt: at(1)},
		{Title: "Alpha", UpdatedAt: at(3)},
		{Title: "gamma", UpdatedAt: at(2)},
	}
	assert.Equal(t, []string{"Alpha", "gamma", "beta"}, titles(Project(in, Options{})))
	assert.Equal(t, []string{"beta", "gamma", "Alpha"}, titles(Project(in, Options{Sort: collection.SortOldest})))
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, titles(Project(in, Options{Sort: collection.SortAZ})))
	assert.Equal(t, []string{"gamma", "beta", "Alpha"}, titles(Project(in, Options{Sort: collection.SortZA})))
}

func TestLocaleAwareTitles(t *testing.T) {
	in := []item.Item{{Title: "zebra"}, {Title: "Äpfel"}, {Title: "apple"}}
	got := titles(Project(in, Options{Sort: collection.SortAZ}, WithLanguage(language.German)))
	assert.Equal(t, "zebra", got[2], "accented titles sort with their base letter")
}

func TestSearchAndFavoriteCompose(t *testing.T) {
	in := []item.Item{
		{Title: "Trip", Favorite: true},
		{Title: "Trip notes", Favorite: false},
		{Title: "Work", Favorite: true},
	}
	got := Project(in, Options{Search: "trip", FavoriteOnly: true})
	assert.Equal(t, []item.Item{{Title: "Trip", Favorite: true}}, got)
}

func TestSearchMatchesBodyCaseInsensitively(t *testing.T) {
	in := []item.Item{
		{Title: "Shopping", Body: "Buy MILK"},
		{Title: "Other"},
	}
	assert.Equal(t, []string{"Shopping"}, titles(Project(in, Options{Search: "milk"})))
	assert.Len(t, Project(in, Options{Search: "   "}), 2, "blank search passes everything")
}

func TestSearchKeepsSurroundingSpaces(t *testing.T) {
	in := []item.Item{
		{ID: "1", Title: "Trip notes"},
		{ID: "2", Title: "notes"},
	}
	assert.Equal(t, []string{"Trip notes"}, titles(Project(in, Options{Search: " notes"})))
	assert.Len(t, Project(in, Options{Search: "notes"}), 2)
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	in := []item.Item{
		{ID: "1", Title: "b", UpdatedAt: at(1)},
		{ID: "2", Title: "a", UpdatedAt: at(2)},
	}
	_ = Project(in, Options{Sort: collection.SortAZ})
	_ = Project(in, Options{Sort: collection.SortOldest, Search: "a"})
	assert.Equal(t, "1", in[0].ID)
	assert.Equal(t, "2", in[1].ID)
}
