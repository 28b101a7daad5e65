package musiclake_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pilosa/musiclake"
)

// jsonSource decodes each JSON object in docs the way the json package does
// and returns them as a Source.
func jsonSource(t *testing.T, docs ...string) musiclake.Source {
	t.Helper()
	recs := make([]interface{}, len(docs))
	for i, doc := range docs {
		dec := json.NewDecoder(strings.NewReader(doc))
		dec.UseNumber()
		var rec map[string]interface{}
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decoding test doc %d: %v", i, err)
		}
		recs[i] = rec
	}
	return musiclake.NewSliceSource(recs...)
}

const (
	songA = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": null, "artist_longitude": null, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`
	songB = `{"num_songs": 1, "artist_id": "AR5E44Z1187B9A1D74", "artist_latitude": 34.05349, "artist_longitude": -118.24532, "artist_location": "Los Angeles, CA", "artist_name": "Tweeterfriendly Music", "song_id": "SOHKNRJ12A6701D1F8", "title": "Drop of Rain", "duration": 189.57016, "year": 1997}`
	// songC is a second catalog entry for songB's title by another artist.
	songC = `{"num_songs": 1, "artist_id": "ARGSAFR1269FB35070", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Blingtones", "song_id": "SOQLGFP12A58A7800E", "title": "Drop of Rain", "duration": 201.0, "year": 2005}`
)

func playEvent(user, level, song string, ts int64) string {
	b, _ := json.Marshal(map[string]interface{}{
		"artist":        "Tweeterfriendly Music",
		"auth":          "Logged In",
		"firstName":     "Ryan",
		"gender":        "M",
		"itemInSession": 0,
		"lastName":      "Smith",
		"length":        189.57016,
		"level":         level,
		"location":      "San Jose-Sunnyvale-Santa Clara, CA",
		"method":        "PUT",
		"page":          "NextSong",
		"registration":  1.541016707796e+12,
		"sessionId":     583,
		"song":          song,
		"status":        200,
		"ts":            ts,
		"userAgent":     "Mozilla/5.0",
		"userId":        user,
	})
	return string(b)
}

const homeEvent = `{"artist":null,"auth":"Logged In","firstName":"Walter","gender":"M","itemInSession":0,"lastName":"Frye","length":null,"level":"free","location":"San Francisco-Oakland-Hayward, CA","method":"GET","page":"Home","registration":1540919166796.0,"sessionId":38,"song":null,"status":200,"ts":1541105830796,"userAgent":"Mozilla","userId":"39"}`
