// Package musiclake builds a star schema data lake out of a song catalog and
// a music streaming event log.
//
// A run reads raw JSON song records and raw JSON events, and writes five
// tables as partitioned parquet files:
//
//	songs       song_id, title, artist_id, year, duration   by year, artist_id
//	artists     artist_id, name, location, latitude, longitude
//	users       user_id, first_name, last_name, gender, level
//	time_table  start_time, hour, day, week, month, year,
//	            weekday, ts                                 by year, month
//	songplays   songplay_id, start_time, user_id, level,
//	            song_id, artist_id, session_id, location,
//	            user_agent, year, month                     by year, month
//
// The work is split into stages which only communicate through Tables:
//
// 1. Source
//
//	A Source yields raw records one at a time. The json package turns any
//	RawSource (local files, S3 objects) into a Source, and the kafka package
//	reads events straight off a topic.
//
// 2. Extractors
//
//	The SongCatalogExtractor enforces SongDataSchema on song records and
//	derives songs and artists. The EventLogExtractor keeps NextSong events
//	and derives users and time.
//
// 3. FactBuilder
//
//	The FactBuilder joins plays to songs by title and to time by start_time,
//	numbering rows with a KeyAssigner.
//
// 4. TableWriter
//
//	The parquet package writes each table under its own prefix of a Store,
//	replacing what was there.
//
// Pipeline strings the stages together.
package musiclake
