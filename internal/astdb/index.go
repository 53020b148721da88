// Package astdb holds the in-memory AllStar node identity database.
//
// The database is a pipe-delimited text file, one node per line:
//
//	node|callsign|description|location
//
// An Index is safe for concurrent use. Reloads build a fresh snapshot and
// swap it in atomically, so readers never observe a partially loaded file.
package astdb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/supermon-ng/supermon-ng/internal/logging"
)

// MaxSearchResults caps every search regardless of the requested limit.
const MaxSearchResults = 200

// Record is one node identity entry. Records are immutable.
type Record struct {
	NodeID      string `json:"node_id"`
	Callsign    string `json:"callsign"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

// Info returns callsign, description and location joined by single spaces,
// skipping empty parts.
func (r Record) Info() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Callsign, r.Description, r.Location} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

type snapshot struct {
	records  map[string]Record
	order    []string // node IDs sorted for deterministic search output
	loadedAt time.Time
	skipped  int
}

var emptySnapshot = &snapshot{records: map[string]Record{}}

// Index is the node identity index.
type Index struct {
	path   string
	snap   atomic.Pointer[snapshot]
	logger *logging.Logger
}

// NewIndex creates an empty index bound to path. Call Reload to populate it.
func NewIndex(path string, logger *logging.Logger) *Index {
	if logger == nil {
		logger = logging.Global()
	}
	idx := &Index{path: path, logger: logger.Component("astdb")}
	idx.snap.Store(emptySnapshot)
	return idx
}

// Load replaces the index contents with the records read from r.
// Lines with the wrong number of fields are skipped.
func (idx *Index) Load(r io.Reader) error {
	snap, err := parse(r)
	if err != nil {
		return err
	}
	idx.snap.Store(snap)
	if snap.skipped > 0 {
		idx.logger.Warn("Skipped malformed ASTDB lines", "skipped", snap.skipped)
	}
	return nil
}

// LoadFile loads the index from path. A missing or unreadable file leaves an
// empty index and is logged, not returned.
func (idx *Index) LoadFile(path string) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			idx.logger.Warn("ASTDB file not found, index is empty", "path", path)
		} else {
			idx.logger.Error("Failed to open ASTDB file", "path", path, "error", err)
		}
		idx.snap.Store(emptySnapshot)
		return
	}
	defer func() { _ = f.Close() }()

	if err := idx.Load(f); err != nil {
		idx.logger.Error("Failed to read ASTDB file", "path", path, "error", err)
		idx.snap.Store(emptySnapshot)
		return
	}
	idx.logger.Info("ASTDB loaded", "path", path, "records", idx.Len())
}

// Reload re-reads the configured path.
func (idx *Index) Reload() {
	idx.LoadFile(idx.path)
}

// Path returns the configured database path.
func (idx *Index) Path() string {
	return idx.path
}

// Lookup returns the record for nodeID.
func (idx *Index) Lookup(nodeID string) (Record, bool) {
	r, ok := idx.snap.Load().records[nodeID]
	return r, ok
}

// LookupMany returns the records found for ids. Unknown IDs are absent from
// the result.
func (idx *Index) LookupMany(ids []string) map[string]Record {
	snap := idx.snap.Load()
	out := make(map[string]Record, len(ids))
	for _, id := range ids {
		if r, ok := snap.records[id]; ok {
			out[id] = r
		}
	}
	return out
}

// Search returns records whose callsign, description or location contains
// query, case-insensitively, ordered by node ID. limit is clamped to
// MaxSearchResults; a non-positive limit means MaxSearchResults.
func (idx *Index) Search(query string, limit int) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Record{}
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	snap := idx.snap.Load()
	out := make([]Record, 0)
	for _, id := range snap.order {
		r := snap.records[id]
		if strings.Contains(strings.ToLower(r.Callsign), q) ||
			strings.Contains(strings.ToLower(r.Description), q) ||
			strings.Contains(strings.ToLower(r.Location), q) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// SearchCallsign returns records whose callsign contains query.
func (idx *Index) SearchCallsign(query string, limit int) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Record{}
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	snap := idx.snap.Load()
	out := make([]Record, 0)
	for _, id := range snap.order {
		r := snap.records[id]
		if strings.Contains(strings.ToLower(r.Callsign), q) {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

// Len returns the number of records.
func (idx *Index) Len() int {
	return len(idx.snap.Load().records)
}

// LoadedAt returns when the current snapshot was built. Zero if never loaded.
func (idx *Index) LoadedAt() time.Time {
	return idx.snap.Load().loadedAt
}

func parse(r io.Reader) (*snapshot, error) {
	snap := &snapshot{records: make(map[string]Record)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != 4 {
			snap.skipped++
			continue
		}
		id := strings.TrimSpace(fields[0])
		if id == "" {
			snap.skipped++
			continue
		}
		snap.records[id] = Record{
			NodeID:      id,
			Callsign:    strings.TrimSpace(fields[1]),
			Description: strings.TrimSpace(fields[2]),
			Location:    strings.TrimSpace(fields[3]),
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan astdb: %w", err)
	}

	snap.order = make([]string, 0, len(snap.records))
	for id := range snap.records {
		snap.order = append(snap.order, id)
	}
	sort.Slice(snap.order, func(i, j int) bool { return lessNodeID(snap.order[i], snap.order[j]) })
	snap.loadedAt = time.Now()
	return snap, nil
}

// lessNodeID orders numeric IDs numerically and places them before
// non-numeric ones.
func lessNodeID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
