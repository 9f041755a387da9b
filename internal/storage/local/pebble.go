package local

import (
	"errors"
	"fmt"
	"math"

	"github.com/cockroachdb/pebble"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/tslnc04/agent-sim/internal/world"
)

const keyPrefix = "stats/"

func statsKey(step int) []byte {
	return []byte(fmt.Sprintf("%s%010d", keyPrefix, step))
}

// prefixEnd is the first key after every stats key.
func prefixEnd() []byte {
	end := []byte(keyPrefix)
	end[len(end)-1]++
	return end
}

// PebbleStore is a Pebble LSM-tree backed StatsStore.
type PebbleStore struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
}

// NewPebbleStore creates a PebbleStore instance (not yet opened).
func NewPebbleStore(dbPath string, logger *zap.Logger) *PebbleStore {
	return &PebbleStore{
		path:   dbPath,
		logger: logger,
	}
}

// Init opens the Pebble database.
func (p *PebbleStore) Init() error {
	opts := &pebble.Options{
		Logger: &pebbleLogger{p.logger},
	}
	db, err := pebble.Open(p.path, opts)
	if err != nil {
		return fmt.Errorf("pebble open %s: %w", p.path, err)
	}
	p.db = db
	p.logger.Info("Stats store opened", zap.String("path", p.path))
	return nil
}

// Close flushes and closes the database.
func (p *PebbleStore) Close() error {
	if p.db != nil {
		err := p.db.Close()
		p.db = nil
		return err
	}
	return nil
}

// Put stores the statistics of one step.
func (p *PebbleStore) Put(s world.Stats) error {
	if s.Step < 0 {
		return fmt.Errorf("negative step %d", s.Step)
	}
	data, err := msgpack.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := p.db.Set(statsKey(s.Step), data, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Get retrieves the statistics of a step.
func (p *PebbleStore) Get(step int) (world.Stats, error) {
	data, closer, err := p.db.Get(statsKey(step))
	if errors.Is(err, pebble.ErrNotFound) {
		return world.Stats{}, fmt.Errorf("step %d: %w", step, ErrNotFound)
	}
	if err != nil {
		return world.Stats{}, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()
	return decode(data)
}

// Range returns the records with from <= step <= to.
func (p *PebbleStore) Range(from, to int) ([]world.Stats, error) {
	if from < 0 {
		from = 0
	}
	if to < from {
		return nil, nil
	}
	upper := prefixEnd()
	if to < math.MaxInt32 {
		upper = statsKey(to + 1)
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: statsKey(from), UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	var out []world.Stats
	for iter.First(); iter.Valid(); iter.Next() {
		s, err := decode(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	return out, nil
}

// Latest returns the record with the highest step.
func (p *PebbleStore) Latest() (world.Stats, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{LowerBound: []byte(keyPrefix), UpperBound: prefixEnd()})
	if err != nil {
		return world.Stats{}, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return world.Stats{}, fmt.Errorf("pebble iter: %w", err)
		}
		return world.Stats{}, ErrNotFound
	}
	return decode(iter.Value())
}

// Truncate deletes all stored records.
func (p *PebbleStore) Truncate() error {
	if err := p.db.DeleteRange([]byte(keyPrefix), prefixEnd(), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete range: %w", err)
	}
	return nil
}

func decode(data []byte) (world.Stats, error) {
	var s world.Stats
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return world.Stats{}, fmt.Errorf("unmarshal: %w", err)
	}
	return s, nil
}

// pebbleLogger adapts zap.Logger to the pebble.Logger interface.
type pebbleLogger struct {
	z *zap.Logger
}

func (l *pebbleLogger) Infof(format string, args ...any) {
	l.z.Sugar().Infof(format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...any) {
	l.z.Sugar().Fatalf(format, args...)
}
