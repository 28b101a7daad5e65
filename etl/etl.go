// Package etl wires the song catalog and event log extractors, the fact
// builder and a parquet writer into a single run configured by Main.
package etl

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilosa/musiclake"
	"github.com/pilosa/musiclake/aws/s3"
	"github.com/pilosa/musiclake/boltdb"
	"github.com/pilosa/musiclake/config"
	"github.com/pilosa/musiclake/file"
	"github.com/pilosa/musiclake/geohash"
	"github.com/pilosa/musiclake/json"
	"github.com/pilosa/musiclake/kafka"
	"github.com/pilosa/musiclake/leveldb"
	"github.com/pilosa/musiclake/logger"
	"github.com/pilosa/musiclake/parquet"
	"github.com/pilosa/musiclake/promstat"
	"github.com/pilosa/musiclake/termstat"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Main holds the options for a run. Roots are either s3:// or s3a:// URLs or
// local directories.
type Main struct {
	InputRoot        string   `help:"Root holding song_data/ and log_data/. An s3:// or s3a:// URL, or a local directory."`
	OutputRoot       string   `help:"Root the tables are written under. An s3:// or s3a:// URL, or a local directory."`
	SongPattern      string   `help:"Glob of song files relative to the input root."`
	LogPattern       string   `help:"Glob of event log files relative to the input root."`
	Credentials      string   `help:"INI file with an [AWS] section holding AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY. Only read when a root is on S3."`
	Region           string   `help:"AWS region. Overrides AWS_REGION in the credentials file."`
	KeyStrategy      string   `help:"How songplay_id is assigned: sequential, range or hash."`
	UnitSize         int      `help:"Rows per execution unit when KeyStrategy is range."`
	TitlePolicy      string   `help:"What to do when several songs share a title: fanout or reject."`
	Translator       string   `help:"Where song ids are kept: memory, bolt or leveldb."`
	TranslatorPath   string   `help:"Bolt file or leveldb directory holding song ids across runs."`
	RereadSongs      bool     `help:"Read songs back from the output before building songplays."`
	GeohashPrecision int      `help:"Add a geohash column of this many characters to artists. 0 disables it."`
	Concurrency      int      `help:"Number of partitions written at once."`
	KafkaHosts       []string `help:"Read the event log from these Kafka brokers instead of the input root."`
	LogTopic         string   `help:"Kafka topic holding the event log."`
	LogCompacted     bool     `help:"The Kafka topic is compacted: a partition that goes quiet before its high-water mark is finished, not an error."`
	LogLevel         string   `help:"Log level: debug, info, warn or error."`
	MetricsPath      string   `help:"Write Prometheus metrics to this textfile when the run ends."`
	TermStats        bool     `help:"Print running counters to stderr."`

	stderr io.Writer
	zap    *zap.Logger
}

// NewMain returns a Main with the default options.
func NewMain() *Main {
	return &Main{
		InputRoot:      "s3a://udacity-dend/",
		OutputRoot:     "s3a://udacity-dend-data-lake/processed/",
		SongPattern:    "song_data/*/*/*/*.json",
		LogPattern:     "log_data/*/*/*.json",
		Credentials:    "dl.cfg",
		KeyStrategy:    "sequential",
		UnitSize:       10000,
		TitlePolicy:    musiclake.FanoutTitles.String(),
		Translator:     "memory",
		TranslatorPath: "musiclake-songs",
		Concurrency:    8,
		LogTopic:       "log_data",
		LogLevel:       "info",
		stderr:         os.Stderr,
	}
}

// Run runs the pipeline once.
func (m *Main) Run() error {
	_, err := m.RunContext(context.Background())
	return err
}

// RunContext runs the pipeline once and reports what was written.
func (m *Main) RunContext(ctx context.Context) (sum *musiclake.Summary, err error) {
	if m.stderr == nil {
		m.stderr = os.Stderr
	}
	zl := m.zap
	if zl == nil {
		zl, err = logger.New(m.LogLevel)
		if err != nil {
			return nil, errors.Wrap(err, "setting up logger")
		}
		defer func() { _ = zl.Sync() }()
	}
	log := logger.Wrap(zl)

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil && err == nil {
				err = errors.Wrap(cerr, "cleaning up")
			}
		}
	}()

	stats, prom := m.statter(&closers)
	if prom != nil {
		defer func() {
			if werr := prom.WriteTextfile(m.MetricsPath); werr != nil && err == nil {
				err = werr
			}
		}()
	}

	keys, err := m.keyAssigner()
	if err != nil {
		return nil, err
	}
	policy, err := musiclake.ParseTitlePolicy(m.TitlePolicy)
	if err != nil {
		return nil, err
	}
	tr, err := m.translator(&closers)
	if err != nil {
		return nil, err
	}

	var creds config.Credentials
	if s3.IsURL(m.InputRoot) || s3.IsURL(m.OutputRoot) {
		creds, err = config.LoadCredentials(m.Credentials)
		if err != nil {
			return nil, err
		}
		if m.Region != "" {
			creds.Region = m.Region
		}
	}

	songSrc, err := m.inputSource(ctx, creds, m.SongPattern)
	if err != nil {
		return nil, errors.Wrap(err, "opening song data")
	}
	closeLater(&closers, songSrc)
	logSrc, err := m.logSource(ctx, creds, log, &closers)
	if err != nil {
		return nil, errors.Wrap(err, "opening log data")
	}
	store, err := m.outputStore(creds)
	if err != nil {
		return nil, errors.Wrap(err, "opening output")
	}

	writer := parquet.NewWriter(store)
	writer.Concurrency = m.Concurrency
	writer.Log, writer.Stats = log, stats

	songs := musiclake.NewSongCatalogExtractor()
	songs.Translator = tr
	songs.Log, songs.Stats = log, stats
	if m.GeohashPrecision > 0 {
		songs.ArtistTransformers = append(songs.ArtistTransformers, geohash.NewTransformer(uint(m.GeohashPrecision)))
	}

	facts := musiclake.NewFactBuilder()
	facts.Keys, facts.TitlePolicy = keys, policy
	facts.Log, facts.Stats = log, stats

	p := &musiclake.Pipeline{
		SongSource:  songSrc,
		LogSource:   logSrc,
		Writer:      writer,
		Reader:      parquet.NewReader(store),
		Songs:       songs,
		Events:      &musiclake.EventLogExtractor{Log: log, Stats: stats},
		Facts:       facts,
		RereadSongs: m.RereadSongs,
		Log:         log,
		Stats:       stats,
	}
	zl.Info("starting run",
		zap.String("input", m.InputRoot),
		zap.String("output", m.OutputRoot),
		zap.String("keys", m.KeyStrategy),
		zap.String("titles", policy.String()))
	return p.Run(ctx)
}

func (m *Main) statter(closers *[]io.Closer) (musiclake.Statter, *promstat.Statter) {
	var stats musiclake.MultiStatter
	var prom *promstat.Statter
	if m.MetricsPath != "" {
		prom = promstat.NewStatter()
		stats = append(stats, prom)
	}
	if m.TermStats {
		ts := termstat.NewCollector(m.stderr, time.Second)
		*closers = append(*closers, ts)
		stats = append(stats, ts)
	}
	switch len(stats) {
	case 0:
		return musiclake.NopStatter{}, nil
	case 1:
		return stats[0], prom
	}
	return stats, prom
}

func (m *Main) keyAssigner() (musiclake.KeyAssigner, error) {
	switch m.KeyStrategy {
	case "", "sequential":
		return musiclake.NewSequentialKeys(), nil
	case "range":
		if m.UnitSize < 1 {
			return nil, errors.Errorf("unit size must be positive, got %d", m.UnitSize)
		}
		return musiclake.NewRangeKeys(m.UnitSize), nil
	case "hash":
		return &musiclake.HashKeys{Columns: musiclake.DefaultHashColumns}, nil
	}
	return nil, errors.Errorf("unknown key strategy '%s'", m.KeyStrategy)
}

func (m *Main) translator(closers *[]io.Closer) (musiclake.Translator, error) {
	switch m.Translator {
	case "", "memory":
		return musiclake.NewMapTranslator(), nil
	case "bolt":
		bt, err := boltdb.NewTranslator(m.TranslatorPath, musiclake.SongFrame)
		if err != nil {
			return nil, errors.Wrap(err, "opening bolt translator")
		}
		*closers = append(*closers, bt)
		return bt, nil
	case "leveldb":
		lt, err := leveldb.NewTranslator(m.TranslatorPath, musiclake.SongFrame)
		if err != nil {
			return nil, errors.Wrap(err, "opening leveldb translator")
		}
		*closers = append(*closers, lt)
		return lt, nil
	}
	return nil, errors.Errorf("unknown translator '%s'", m.Translator)
}

func (m *Main) inputSource(ctx context.Context, creds config.Credentials, pattern string) (musiclake.Source, error) {
	if !s3.IsURL(m.InputRoot) {
		return file.NewSource(file.OptSrcPath(filepath.Join(m.InputRoot, filepath.FromSlash(pattern))))
	}
	bucket, prefix, err := s3.ParseURL(m.InputRoot)
	if err != nil {
		return nil, err
	}
	client, err := s3.NewClient(creds)
	if err != nil {
		return nil, err
	}
	rs, err := s3.NewRawSource(ctx, client, bucket, prefix+strings.TrimPrefix(pattern, "/"))
	if err != nil {
		return nil, err
	}
	return json.NewSourceFromRawSource(rs), nil
}

func (m *Main) logSource(ctx context.Context, creds config.Credentials, log musiclake.Logger, closers *[]io.Closer) (musiclake.Source, error) {
	if len(m.KafkaHosts) == 0 {
		src, err := m.inputSource(ctx, creds, m.LogPattern)
		if err != nil {
			return nil, err
		}
		closeLater(closers, src)
		return src, nil
	}
	src := kafka.NewSource()
	src.Hosts, src.Topic, src.Log = m.KafkaHosts, m.LogTopic, log
	src.Compacted = m.LogCompacted
	if err := src.Open(); err != nil {
		return nil, errors.Wrap(err, "opening kafka source")
	}
	*closers = append(*closers, src)
	return src, nil
}

// closeLater adds src to closers if it holds resources.
func closeLater(closers *[]io.Closer, src musiclake.Source) {
	if c, ok := src.(io.Closer); ok {
		*closers = append(*closers, c)
	}
}

func (m *Main) outputStore(creds config.Credentials) (musiclake.Store, error) {
	if !s3.IsURL(m.OutputRoot) {
		return file.NewStore(m.OutputRoot), nil
	}
	client, err := s3.NewClient(creds)
	if err != nil {
		return nil, err
	}
	return s3.NewStore(client, m.OutputRoot)
}
