package services

import (
	"testing"

	"github.com/desertthunder/opium/internal/models"
)

func TestSearchResults(t *testing.T) {
	results := &SearchResults{
		Tracks:  []models.Track{{ID: "t1", Name: "One", Artists: []models.Artist{{Name: "A"}, {Name: "B"}}}, {ID: "t2", Name: "Two"}},
		Artists: []models.Artist{{ID: "ar1", Name: "Artist"}},
		Albums:  []models.Album{{ID: "al1", Name: "X"}, {ID: "al2", Name: "Y"}, {ID: "al3", Name: "Z", Artists: []models.Artist{{Name: "C"}}}},
	}

	t.Run("Flatten Order", func(t *testing.T) {
		flat := results.Flatten()
		kinds := []ResultKind{ResultTrack, ResultTrack, ResultArtist, ResultAlbum, ResultAlbum, ResultAlbum}
		if len(flat) != len(kinds) {
			t.Fatalf("expected %d results, got %d", len(kinds), len(flat))
		}
		for i, k := range kinds {
			if flat[i].Kind != k {
				t.Errorf("result %d: expected %v, got %v", i, k, flat[i].Kind)
			}
		}
		if flat[3].Album.ID != "al1" || flat[5].Album.ID != "al3" {
			t.Error("albums should keep API order")
		}
	})

	t.Run("Title And Subtitle", func(t *testing.T) {
		flat := results.Flatten()
		tests := []struct {
			index    int
			title    string
			subtitle string
		}{
			{0, "One", "A, B"},
			{2, "Artist", "Artist"},
			{5, "Z", "C"},
		}
		for _, tc := range tests {
			if got := flat[tc.index].Title(); got != tc.title {
				t.Errorf("expected title %q, got %q", tc.title, got)
			}
			if got := flat[tc.index].Subtitle(); got != tc.subtitle {
				t.Errorf("expected subtitle %q, got %q", tc.subtitle, got)
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		empty := &SearchResults{}
		if empty.Len() != 0 || len(empty.Flatten()) != 0 {
			t.Error("expected no results")
		}
	})

	t.Run("Kind String", func(t *testing.T) {
		if ResultPlaylist.String() != "playlist" || ResultKind(99).String() != "unknown" {
			t.Error("unexpected kind names")
		}
	})
}
