package musiclake

import (
	"github.com/pkg/errors"
)

// SongFrame is the Translator frame song ids are allocated in.
const SongFrame = "song"

// SongCatalog holds the dimensions derived from the raw song catalog.
type SongCatalog struct {
	Songs   *Table
	Artists *Table
}

// SongCatalogExtractor derives the songs and artists dimensions from raw
// song records.
type SongCatalogExtractor struct {
	// Translator allocates song ids from the natural key of each song. A
	// fresh MapTranslator is used if it is nil.
	Translator Translator

	// ArtistTransformers derive extra columns on the artists dimension.
	ArtistTransformers []Transformer

	Log   Logger
	Stats Statter
}

// NewSongCatalogExtractor returns an extractor with a run-local translator
// and no enrichment.
func NewSongCatalogExtractor() *SongCatalogExtractor {
	return &SongCatalogExtractor{
		Translator: NewMapTranslator(),
		Log:        NopLogger{},
		Stats:      NopStatter{},
	}
}

// Extract reads every record from src against SongDataSchema. A record whose
// values do not fit the schema fails the extraction with a SchemaViolation.
func (x *SongCatalogExtractor) Extract(src Source) (*SongCatalog, error) {
	x.defaults()
	raw, err := LoadTable(src, SongDataSchema)
	if err != nil {
		return nil, errors.Wrap(err, "loading song records")
	}
	x.Stats.Count("songs.records", int64(raw.Len()), 1)

	songs, err := x.songs(raw)
	if err != nil {
		return nil, errors.Wrap(err, "deriving songs")
	}
	artists, err := x.artists(raw)
	if err != nil {
		return nil, errors.Wrap(err, "deriving artists")
	}
	x.Stats.Count("songs.rows", int64(songs.Len()), 1)
	x.Stats.Count("artists.rows", int64(artists.Len()), 1)
	x.Log.Printf("song catalog: %d records, %d songs, %d artists", raw.Len(), songs.Len(), artists.Len())
	return &SongCatalog{Songs: songs, Artists: artists}, nil
}

func (x *SongCatalogExtractor) defaults() {
	if x.Translator == nil {
		x.Translator = NewMapTranslator()
	}
	if x.Log == nil {
		x.Log = NopLogger{}
	}
	if x.Stats == nil {
		x.Stats = NopStatter{}
	}
}

func (x *SongCatalogExtractor) songs(raw *Table) (*Table, error) {
	songs, err := raw.Select(Col("title"), Col("artist_id"), Col("year"), Col("duration"))
	if err != nil {
		return nil, err
	}
	songs = songs.Distinct()
	songs, err = songs.WithColumn(Column{Name: "song_id", Type: Long}, func(row RowView) (interface{}, error) {
		id, err := x.Translator.GetID(SongFrame, songKey(row.row))
		if err != nil {
			return nil, errors.Wrap(err, "translating song key")
		}
		return int64(id), nil
	})
	if err != nil {
		return nil, err
	}
	return songs.Select(Col("song_id"), Col("title"), Col("artist_id"), Col("year"), Col("duration"))
}

// songKey encodes the natural key of a songs row, which is the whole row.
func songKey(row Row) []byte {
	var key []byte
	for _, v := range row {
		key = appendKey(key, v)
	}
	return key
}

func (x *SongCatalogExtractor) artists(raw *Table) (*Table, error) {
	artists, err := raw.Select(
		Col("artist_id"),
		Col("artist_name").As("name"),
		Col("artist_location").As("location"),
		Col("artist_latitude").As("latitude"),
		Col("artist_longitude").As("longitude"),
	)
	if err != nil {
		return nil, err
	}
	artists = artists.Distinct()
	if len(x.ArtistTransformers) == 0 {
		return artists, nil
	}
	return Transform(artists, x.ArtistTransformers...)
}
