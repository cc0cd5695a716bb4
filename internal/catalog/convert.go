package catalog

import (
	"errors"
	"html"
	"math"
	"regexp"
	"strings"

	"github.com/sakif/gameratings/internal/model"
)

// ErrNoTitle marks a RAWG record without a name; it cannot be imported.
var ErrNoTitle = errors.New("catalog: game has no title")

var htmlTag = regexp.MustCompile(`</?[^>]+(>|$)`)

// StripHTML removes tags and decodes entities.
func StripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(htmlTag.ReplaceAllString(s, "")))
}

// ToModel converts a RAWG record into a catalog game.
func ToModel(d GameDetail) (*model.Game, error) {
	title := strings.TrimSpace(d.Name)
	if title == "" {
		return nil, ErrNoTitle
	}

	g := &model.Game{
		Title:            title,
		Description:      StripHTML(d.Description),
		Genre:            joinNames(d.Genres, ", "),
		Tags:             names(d.Tags),
		Platforms:        make(model.StringList, 0, len(d.Platforms)),
		PlaytimeEstimate: max(d.Playtime, 0),
		Developer:        firstName(d.Developers),
		Publisher:        firstName(d.Publishers),
		GameMode:         gameMode(d.Tags),
		ReviewRating:     clampRating(d.Rating),
		CoverImage:       d.BackgroundImage,
	}
	for _, p := range d.Platforms {
		g.Platforms = append(g.Platforms, p.Platform.Name)
	}
	if g.Genre == "" {
		g.Genre = "Unknown"
	}
	if d.Released != "" {
		released := d.Released
		g.ReleaseDate = &released
	}
	return g, nil
}

// gameMode derives the mode from RAWG's "singleplayer" and "multiplayer"
// tags. Games tagged with neither count as single-player.
func gameMode(tags []Named) string {
	var single, multi bool
	for _, t := range tags {
		switch strings.ToLower(t.Name) {
		case "singleplayer":
			single = true
		case "multiplayer":
			multi = true
		}
	}
	switch {
	case single && multi:
		return model.GameModeBoth
	case multi:
		return model.GameModeMulti
	default:
		return model.GameModeSingle
	}
}

// clampRating rounds RAWG's float rating and clamps it into 1-10.
func clampRating(r float64) int {
	n := int(math.Round(r))
	return min(max(n, 1), 10)
}

func names(in []Named) model.StringList {
	out := make(model.StringList, 0, len(in))
	for _, n := range in {
		out = append(out, n.Name)
	}
	return out
}

func joinNames(in []Named, sep string) string {
	return strings.Join(names(in), sep)
}

func firstName(in []Named) string {
	if len(in) == 0 || in[0].Name == "" {
		return "Unknown"
	}
	return in[0].Name
}
