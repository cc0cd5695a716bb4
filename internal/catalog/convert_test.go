package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gameratings/internal/model"
)

func TestToModel(t *testing.T) {
	d := GameDetail{
		Name:        " Portal 2 ",
		Description: "<p>Sequel to <b>Portal</b> &amp; more.</p><br/>",
		Genres:      []Named{{Name: "Shooter"}, {Name: "Puzzle"}},
		Tags:        []Named{{Name: "Singleplayer"}, {Name: "Multiplayer"}, {Name: "Co-op"}},
		Platforms:   []PlatformEntry{{Platform: Named{Name: "PC"}}, {Platform: Named{Name: "Xbox 360"}}},
		Playtime:    11,
		Developers:  []Named{{Name: "Valve Software"}},
		Released:    "2011-04-18",
		Rating:      4.61,
	}
	d.BackgroundImage = "https://media.rawg.io/portal2.jpg"

	g, err := ToModel(d)
	require.NoError(t, err)

	assert.Equal(t, "Portal 2", g.Title)
	assert.Equal(t, "Sequel to Portal & more.", g.Description)
	assert.Equal(t, "Shooter, Puzzle", g.Genre)
	assert.Equal(t, model.StringList{"Singleplayer", "Multiplayer", "Co-op"}, g.Tags)
	assert.Equal(t, model.StringList{"PC", "Xbox 360"}, g.Platforms)
	assert.Equal(t, 11, g.PlaytimeEstimate)
	assert.Equal(t, "Valve Software", g.Developer)
	assert.Equal(t, "Unknown", g.Publisher)
	assert.Equal(t, model.GameModeBoth, g.GameMode)
	assert.Equal(t, 5, g.ReviewRating)
	require.NotNil(t, g.ReleaseDate)
	assert.Equal(t, "2011-04-18", *g.ReleaseDate)
	assert.Equal(t, "https://media.rawg.io/portal2.jpg", g.CoverImage)
}

func TestToModel_Defaults(t *testing.T) {
	g, err := ToModel(GameDetail{Name: "Mystery"})
	require.NoError(t, err)

	assert.Equal(t, "Unknown", g.Genre)
	assert.Equal(t, "Unknown", g.Developer)
	assert.Equal(t, model.StringList{}, g.Tags)
	assert.Equal(t, model.StringList{}, g.Platforms)
	assert.Equal(t, model.GameModeSingle, g.GameMode)
	assert.Equal(t, 1, g.ReviewRating)
	assert.Nil(t, g.ReleaseDate)
}

func TestToModel_NoTitle(t *testing.T) {
	_, err := ToModel(GameDetail{Name: "   "})
	assert.True(t, errors.Is(err, ErrNoTitle))
}

func TestGameMode(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want string
	}{
		{name: "no tags", want: model.GameModeSingle},
		{name: "singleplayer only", tags: []string{"Singleplayer"}, want: model.GameModeSingle},
		{name: "multiplayer only", tags: []string{"Multiplayer", "Online"}, want: model.GameModeMulti},
		{name: "both", tags: []string{"multiplayer", "singleplayer"}, want: model.GameModeBoth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tags []Named
			for _, n := range tt.tags {
				tags = append(tags, Named{Name: n})
			}
			if got := gameMode(tags); got != tt.want {
				t.Errorf("gameMode(%v) = %q, want %q", tt.tags, got, tt.want)
			}
		})
	}
}

func TestClampRating(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 1}, {0.4, 1}, {1.5, 2}, {4.49, 4}, {9.6, 10}, {42, 10}, {-3, 1},
	}
	for _, tt := range tests {
		if got := clampRating(tt.in); got != tt.want {
			t.Errorf("clampRating(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "a b", StripHTML("<p>a</p> <i>b"))
	assert.Equal(t, "it's", StripHTML("it&#39;s"))
	assert.Equal(t, "", StripHTML(""))
}
