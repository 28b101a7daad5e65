package fake

import (
	"fmt"
	"math"
	"strings"

	"github.com/pilosa/musiclake/fake/gen"
)

// Song is one record of the raw song catalog, shaped like the files under
// song_data/.
type Song struct {
	NumSongs        int      `json:"num_songs"`
	ArtistID        string   `json:"artist_id"`
	ArtistLatitude  *float64 `json:"artist_latitude"`
	ArtistLongitude *float64 `json:"artist_longitude"`
	ArtistLocation  string   `json:"artist_location"`
	ArtistName      string   `json:"artist_name"`
	SongID          string   `json:"song_id"`
	Title           string   `json:"title"`
	Duration        float64  `json:"duration"`
	Year            int      `json:"year"`

	// TrackID names the file the song is stored in.
	TrackID string `json:"-"`
}

// Key returns the object key of the song's file. Files are spread over three
// directory levels named after the 3rd to 5th characters of the track id.
func (s *Song) Key() string {
	return fmt.Sprintf("song_data/%c/%c/%c/%s.json", s.TrackID[2], s.TrackID[3], s.TrackID[4], s.TrackID)
}

type artist struct {
	id       string
	name     string
	location string
	lat, lon *float64
}

// SongGenerator generates a catalog of songs by a pool of artists.
type SongGenerator struct {
	g *gen.Generator
}

// NewSongGenerator gets a new SongGenerator.
func NewSongGenerator(seed int64) *SongGenerator {
	return &SongGenerator{g: gen.NewGenerator(seed)}
}

// Catalog returns n songs. Roughly one in twenty reuses a title already in
// the catalog, and some artists have no coordinates or no release year.
func (sg *SongGenerator) Catalog(n int) []*Song {
	artists := make([]*artist, n/3+1)
	for i := range artists {
		artists[i] = sg.artist(i)
	}
	songs := make([]*Song, n)
	for i := range songs {
		a := artists[sg.g.Uint64(len(artists))]
		title := sg.title()
		if i > 0 && sg.g.Chance(0.05) {
			title = songs[sg.g.Intn(i)].Title
		}
		year := 0
		if sg.g.Chance(0.7) {
			year = 1960 + sg.g.Intn(50)
		}
		songs[i] = &Song{
			NumSongs:        1,
			ArtistID:        a.id,
			ArtistLatitude:  a.lat,
			ArtistLongitude: a.lon,
			ArtistLocation:  a.location,
			ArtistName:      a.name,
			SongID:          "SO" + sg.g.ID(16, uint64(i)<<1),
			Title:           title,
			Duration:        math.Round(sg.g.Float64(90, 420)*1e5) / 1e5,
			Year:            year,
			TrackID:         "TR" + sg.g.ID(16, uint64(i)<<1|1),
		}
	}
	return songs
}

func (sg *SongGenerator) artist(i int) *artist {
	a := &artist{
		id:   "AR" + sg.g.ID(16, uint64(i)|1<<40),
		name: strings.Title(sg.g.Pick(adjectives) + " " + sg.g.Pick(nouns)),
	}
	if sg.g.Chance(0.8) {
		a.location = sg.g.Pick(cities)
	}
	if sg.g.Chance(0.6) {
		lat := math.Round(sg.g.Float64(-60, 70)*1e5) / 1e5
		lon := math.Round(sg.g.Float64(-180, 180)*1e5) / 1e5
		a.lat, a.lon = &lat, &lon
	}
	return a
}

func (sg *SongGenerator) title() string {
	switch sg.g.Intn(3) {
	case 0:
		return strings.Title(sg.g.Pick(nouns))
	case 1:
		return strings.Title(sg.g.Pick(adjectives) + " " + sg.g.Pick(nouns))
	default:
		return strings.Title(sg.g.Pick(nouns) + " of " + sg.g.Pick(nouns))
	}
}

var adjectives = []string{"blue", "broken", "burning", "electric", "endless", "golden", "hollow", "last", "lonely", "midnight", "neon", "quiet", "restless", "silver", "sweet", "velvet", "wild", "young"}

var nouns = []string{"rain", "river", "heart", "highway", "summer", "fire", "ghost", "garden", "mirror", "ocean", "radio", "road", "shadow", "sky", "star", "storm", "train", "window", "dream", "city"}

var cities = []string{"Los Angeles, CA", "New York, NY", "London, England", "Chicago, IL", "Austin, TX", "Berlin, Germany", "Nashville, TN", "Seattle, WA", "Kingston, Jamaica", "Stockholm, Sweden", "Atlanta, GA", "Detroit, MI"}
