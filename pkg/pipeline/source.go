package pipeline

import (
	"sync"

	"github.com/google/uuid"

	"slphase/pkg/correlate"
)

// Source yields the records an input delivered for one exec cycle, in
// pattern-index order. An unknown cycle yields no records.
type Source interface {
	Fetch(id correlate.ID) ([]correlate.Record, error)
}

// Sink accepts id-tagged output records in the order they are produced.
type Sink interface {
	Emit(stream string, rec correlate.Record) error
}

// NewCycleID returns a fresh exec cycle identifier.
func NewCycleID() correlate.ID {
	return correlate.ID(uuid.NewString())
}

// MemorySource is a Source backed by a map. It is safe for concurrent use.
type MemorySource struct {
	mu      sync.RWMutex
	records map[correlate.ID][]correlate.Record
}

// NewMemorySource returns an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{records: make(map[correlate.ID][]correlate.Record)}
}

// Add appends a value to the records of cycle id.
func (m *MemorySource) Add(id correlate.ID, value any) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = append(m.records[id], correlate.Record{ID: id, Value: value})
	return m
}

// AddRecord appends a record under the cycle named by key, keeping the
// record's own id. Hosts use it to replay records as delivered.
func (m *MemorySource) AddRecord(key correlate.ID, rec correlate.Record) *MemorySource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append(m.records[key], rec)
	return m
}

// Fetch implements Source.
func (m *MemorySource) Fetch(id correlate.ID) ([]correlate.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := m.records[id]
	out := make([]correlate.Record, len(recs))
	copy(out, recs)
	return out, nil
}

// Collector is a Sink that keeps every record in memory, grouped by stream.
type Collector struct {
	mu      sync.Mutex
	order   []string
	streams map[string][]correlate.Record
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{streams: make(map[string][]correlate.Record)}
}

// Emit implements Sink.
func (c *Collector) Emit(stream string, rec correlate.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = append(c.order, stream)
	c.streams[stream] = append(c.streams[stream], rec)
	return nil
}

// Records returns the records emitted on stream.
func (c *Collector) Records(stream string) []correlate.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]correlate.Record(nil), c.streams[stream]...)
}

// Order returns the stream name of every emitted record, in emission order.
func (c *Collector) Order() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}
