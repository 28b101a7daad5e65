package fake

import (
	"sort"
	"strings"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/fake/gen"
)

// Event is one record of the raw listening log, shaped like the lines of the
// files under log_data/. Fields the service leaves out for logged out
// visitors are pointers so they encode as null.
type Event struct {
	Artist        *string  `json:"artist"`
	Auth          string   `json:"auth"`
	FirstName     *string  `json:"firstName"`
	Gender        *string  `json:"gender"`
	ItemInSession int      `json:"itemInSession"`
	LastName      *string  `json:"lastName"`
	Length        *float64 `json:"length"`
	Level         string   `json:"level"`
	Location      *string  `json:"location"`
	Method        string   `json:"method"`
	Page          string   `json:"page"`
	Registration  *float64 `json:"registration"`
	SessionID     int64    `json:"sessionId"`
	Song          *string  `json:"song"`
	Status        int      `json:"status"`
	TS            int64    `json:"ts"`
	UserAgent     *string  `json:"userAgent"`
	UserID        string   `json:"userId"`
}

// Time returns the event's start time, floored to the second.
func (e *Event) Time() time.Time { return musiclake.StartTime(e.TS) }

var otherPages = []string{"Home", "Home", "Settings", "Help", "About", "Upgrade", "Downgrade", "Save Settings", "Logout"}

// EventGenerator generates listening sessions over a song catalog.
type EventGenerator struct {
	g     *gen.Generator
	songs []*Song
	users []*User
}

// NewEventGenerator gets a new EventGenerator which plays songs to users.
func NewEventGenerator(seed int64, songs []*Song, users []*User) *EventGenerator {
	return &EventGenerator{
		g:     gen.NewGenerator(seed),
		songs: songs,
		users: users,
	}
}

// Events generates n sessions starting in [start, start+days) and returns
// their events ordered by timestamp. About three quarters of logged in
// events are plays. Most plays pick a catalog song, the rest a title the
// catalog does not know. Users occasionally upgrade to paid, after which
// their events carry the new level.
func (eg *EventGenerator) Events(start time.Time, days, n int) []*Event {
	var events []*Event
	span := time.Duration(days) * 24 * time.Hour
	for sid := int64(1); sid <= int64(n); sid++ {
		ts := start.Add(time.Duration(eg.g.Float64(0, float64(span-time.Hour))))
		if eg.g.Chance(0.05) {
			events = append(events, loggedOut(sid, ts))
			continue
		}
		u := eg.users[eg.g.Uint64(len(eg.users))]
		items := 1 + eg.g.Intn(12)
		for i := 0; i < items; i++ {
			e := eg.visit(u, sid, i, ts)
			events = append(events, e)
			if e.Page == "Upgrade" && eg.g.Chance(0.5) {
				u.Level = "paid"
			}
			step := 1 + eg.g.Intn(300)
			if e.Length != nil {
				step = int(*e.Length)
			}
			ts = ts.Add(time.Duration(step)*time.Second + time.Duration(eg.g.Intn(1000))*time.Millisecond)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].TS < events[j].TS })
	return events
}

func (eg *EventGenerator) visit(u *User, sid int64, item int, ts time.Time) *Event {
	reg := u.Registration
	e := &Event{
		Auth:          "Logged In",
		FirstName:     &u.FirstName,
		Gender:        &u.Gender,
		ItemInSession: item,
		LastName:      &u.LastName,
		Level:         u.Level,
		Location:      &u.Location,
		Method:        "GET",
		Page:          eg.g.Pick(otherPages),
		Registration:  &reg,
		SessionID:     sid,
		Status:        200,
		TS:            ts.UnixNano() / int64(time.Millisecond),
		UserAgent:     &u.UserAgent,
		UserID:        u.ID,
	}
	if eg.g.Chance(0.75) {
		e.Page = musiclake.NextSongPage
		e.Method = "PUT"
		var artist, title string
		var length float64
		if len(eg.songs) > 0 && eg.g.Chance(0.9) {
			s := eg.songs[eg.g.Uint64(len(eg.songs))]
			artist, title, length = s.ArtistName, s.Title, s.Duration
		} else {
			artist = strings.Title(eg.g.Pick(adjectives) + " " + eg.g.Pick(nouns) + "s")
			title = strings.Title(eg.g.Pick(nouns) + " " + eg.g.Pick(nouns) + " " + eg.g.Pick(nouns))
			length = eg.g.Float64(90, 420)
		}
		e.Artist, e.Song, e.Length = &artist, &title, &length
	}
	return e
}

func loggedOut(sid int64, ts time.Time) *Event {
	return &Event{
		Auth:      "Logged Out",
		Level:     "free",
		Method:    "GET",
		Page:      "Home",
		Status:    200,
		TS:        ts.UnixNano() / int64(time.Millisecond),
		SessionID: sid,
	}
}
