package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/supermon-ng/supermon-ng/internal/ami"
	"github.com/supermon-ng/supermon-ng/internal/astdb"
	"github.com/supermon-ng/supermon-ng/internal/cache"
	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/metrics"
	"github.com/supermon-ng/supermon-ng/internal/models"
	"github.com/supermon-ng/supermon-ng/internal/nodeconfig"
	"github.com/supermon-ng/supermon-ng/internal/parser"
	"github.com/supermon-ng/supermon-ng/internal/utils"
)

// Lookup kinds, decided from the shape of the query
const (
	LookupKindCallsign = "callsign"
	LookupKindAllStar  = "allstar"
	LookupKindEchoLink = "echolink"
	LookupKindIRLP     = "irlp"
)

// DNSNotFound is the registration status of an AllStar node without a DNS record
const DNSNotFound = "NOT FOUND"

const (
	echoLinkDumpCommand = "echolink dbdump"
	echoLinkKeyPrefix   = "lookup:echolink:"
	irlpKey             = "lookup:irlp"

	// registrationConcurrency bounds parallel DNS queries of one search
	registrationConcurrency = 8
)

// Resolver answers AllStar registration queries. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Directory is the AllStar part of a lookup
type Directory interface {
	Lookup(nodeID string) (astdb.Record, bool)
	SearchCallsign(query string, limit int) []astdb.Record
}

// LookupSettings tunes query classification and dump handling
type LookupSettings struct {
	EchoLinkThreshold int64 // numbers above are EchoLink
	IRLPMin           int64 // exclusive
	IRLPMax           int64 // exclusive
	EchoLinkEnabled   bool
	IRLPEnabled       bool
	IRLPCallsPath     string
	DumpTTL           time.Duration
	Limit             int
	DNSSuffix         string // empty disables registration status
}

// LookupService searches AllStar, EchoLink and IRLP directories
type LookupService struct {
	logger    *logging.Logger
	runner    *sessionRunner
	directory Directory
	cache     cache.Cache
	resolver  Resolver
	metrics   *metrics.Metrics
	settings  LookupSettings
	fills     singleflight.Group
}

// NewLookupService creates a new LookupService. resolver may be nil when
// settings.DNSSuffix is empty.
func NewLookupService(
	logger *logging.Logger,
	nodes nodeconfig.Provider,
	transport ami.Transport,
	directory Directory,
	c cache.Cache,
	resolver Resolver,
	m *metrics.Metrics,
	settings LookupSettings,
) *LookupService {
	if settings.Limit <= 0 {
		settings.Limit = astdb.MaxSearchResults
	}
	if settings.DumpTTL <= 0 {
		settings.DumpTTL = 10 * time.Minute
	}
	logger = logger.Component("lookup")
	return &LookupService{
		logger:    logger,
		runner:    &sessionRunner{nodes: nodes, transport: transport, logger: logger},
		directory: directory,
		cache:     c,
		resolver:  resolver,
		metrics:   m,
		settings:  settings,
	}
}

// Classify returns the lookup kind of an upper-cased query
func (s *LookupService) Classify(query string) string {
	if !isDigits(query) {
		return LookupKindCallsign
	}
	n, _ := strconv.ParseInt(query, 10, 64)
	switch {
	case n > s.settings.IRLPMin && n < s.settings.IRLPMax:
		return LookupKindIRLP
	case n > s.settings.EchoLinkThreshold:
		return LookupKindEchoLink
	default:
		return LookupKindAllStar
	}
}

// Lookup runs every sub-search for query. localNode is the node whose
// EchoLink module answers the EchoLink dump. Sub-searches fail independently:
// a failure is reported in its group and never aborts the others.
func (s *LookupService) Lookup(ctx context.Context, query, localNode string) (*models.LookupResponse, error) {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil, NewServiceError(CodeInvalidRequest, "query is required")
	}

	kind := s.Classify(q)
	var searches []func(context.Context) models.LookupGroup
	switch kind {
	case LookupKindCallsign:
		searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.allStarCallsign(ctx, q) })
		if s.settings.EchoLinkEnabled {
			searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.echoLinkCallsign(ctx, q, localNode) })
		}
		if s.settings.IRLPEnabled {
			searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.irlpCallsign(ctx, q) })
		}
	case LookupKindIRLP:
		searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.irlpNumber(ctx, q) })
	case LookupKindEchoLink:
		searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.echoLinkNumber(ctx, q, localNode) })
	default:
		searches = append(searches, func(ctx context.Context) models.LookupGroup { return s.allStarNumber(ctx, q) })
	}

	groups := make([]models.LookupGroup, len(searches))
	var g errgroup.Group
	for i, search := range searches {
		g.Go(func() error {
			groups[i] = search(ctx)
			return nil
		})
	}
	_ = g.Wait()

	for _, grp := range groups {
		var err error
		if grp.Error != "" {
			err = errors.New(grp.Error)
		}
		s.metrics.LookupSearch(grp.Source, err)
	}

	return &models.LookupResponse{Query: q, Kind: kind, Groups: groups}, nil
}

func (s *LookupService) allStarCallsign(ctx context.Context, q string) models.LookupGroup {
	records := s.directory.SearchCallsign(q, s.settings.Limit)
	grp := models.LookupGroup{Source: models.SourceAllStar, QueryEcho: q, Entries: make([]models.LookupEntry, len(records))}

	var g errgroup.Group
	g.SetLimit(registrationConcurrency)
	for i, rec := range records {
		g.Go(func() error {
			grp.Entries[i] = s.allStarEntry(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
	return grp
}

func (s *LookupService) allStarNumber(ctx context.Context, q string) models.LookupGroup {
	node := trimZeros(q)
	grp := models.LookupGroup{Source: models.SourceAllStar, QueryEcho: node, Entries: []models.LookupEntry{}}
	if rec, ok := s.directory.Lookup(node); ok {
		grp.Entries = append(grp.Entries, s.allStarEntry(ctx, rec))
	}
	return grp
}

func (s *LookupService) allStarEntry(ctx context.Context, rec astdb.Record) models.LookupEntry {
	return models.LookupEntry{
		Node:        rec.NodeID,
		Callsign:    rec.Callsign,
		Description: rec.Description,
		Location:    rec.Location,
		Status:      s.registration(ctx, rec.NodeID),
	}
}

// registration resolves node.<suffix>; the first address is the status
func (s *LookupService) registration(ctx context.Context, node string) string {
	if s.settings.DNSSuffix == "" || s.resolver == nil {
		return ""
	}
	host := node + "." + strings.TrimPrefix(s.settings.DNSSuffix, ".")
	addrs, err := s.resolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return DNSNotFound
	}
	return addrs[0]
}

func (s *LookupService) echoLinkCallsign(ctx context.Context, q, localNode string) models.LookupGroup {
	grp := models.LookupGroup{Source: models.SourceEchoLink, QueryEcho: q, Entries: []models.LookupEntry{}}
	entries, err := s.echoLinkDump(ctx, localNode)
	if err != nil {
		grp.Error = err.Error()
		return grp
	}
	grp.Entries = dumpEntries(parser.FilterByCallsign(entries, q, s.settings.Limit))
	return grp
}

func (s *LookupService) echoLinkNumber(ctx context.Context, q, localNode string) models.LookupGroup {
	node := trimZeros(q[1:])
	grp := models.LookupGroup{Source: models.SourceEchoLink, QueryEcho: node, Entries: []models.LookupEntry{}}
	entries, err := s.echoLinkDump(ctx, localNode)
	if err != nil {
		grp.Error = err.Error()
		return grp
	}
	grp.Entries = dumpEntries(parser.FilterByNode(entries, node))
	return grp
}

func (s *LookupService) irlpCallsign(ctx context.Context, q string) models.LookupGroup {
	grp := models.LookupGroup{Source: models.SourceIRLP, QueryEcho: q, Entries: []models.LookupEntry{}}
	entries, err := s.irlpDump(ctx)
	if err != nil {
		grp.Error = err.Error()
		return grp
	}
	grp.Entries = dumpEntries(parser.FilterByCallsign(entries, q, s.settings.Limit))
	return grp
}

func (s *LookupService) irlpNumber(ctx context.Context, q string) models.LookupGroup {
	node := trimZeros(q[1:])
	grp := models.LookupGroup{Source: models.SourceIRLP, QueryEcho: node, Entries: []models.LookupEntry{}}
	if !s.settings.IRLPEnabled {
		grp.Error = "IRLP lookup is disabled"
		return grp
	}
	entries, err := s.irlpDump(ctx)
	if err != nil {
		grp.Error = err.Error()
		return grp
	}
	grp.Entries = dumpEntries(parser.FilterByNode(entries, node))
	return grp
}

// echoLinkDump returns the EchoLink directory known to localNode, cached
// for DumpTTL. Concurrent misses share one manager round trip.
func (s *LookupService) echoLinkDump(ctx context.Context, localNode string) ([]parser.DumpEntry, error) {
	if localNode == "" {
		return nil, fmt.Errorf("a local node is required for EchoLink lookups")
	}
	return s.cachedDump(ctx, echoLinkKeyPrefix+localNode, func(ctx context.Context) ([]parser.DumpEntry, error) {
		out, err := s.runner.command(ctx, localNode, echoLinkDumpCommand)
		if err != nil {
			return nil, transportError(localNode, err)
		}
		entries, ok := parser.ParseEchoLinkDump(out)
		if !ok {
			return nil, fmt.Errorf("EchoLink is not loaded on node %s", localNode)
		}
		return entries, nil
	})
}

// irlpDump reads the gzip IRLP station list, cached for DumpTTL
func (s *LookupService) irlpDump(ctx context.Context) ([]parser.DumpEntry, error) {
	return s.cachedDump(ctx, irlpKey, func(context.Context) ([]parser.DumpEntry, error) {
		f, err := os.Open(s.settings.IRLPCallsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open IRLP calls: %w", err)
		}
		defer func() { _ = f.Close() }()

		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read IRLP calls: %w", err)
		}
		defer func() { _ = zr.Close() }()

		entries, err := parser.ParseIRLPDump(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to read IRLP calls: %w", err)
		}
		return entries, nil
	})
}

// cachedDump serves key from the cache or runs fill once for all concurrent
// misses. The fill is detached from ctx and bounded by LookupTimeout; each
// caller stops waiting when its own ctx ends. Failed fills are not cached.
func (s *LookupService) cachedDump(ctx context.Context, key string, fill func(context.Context) ([]parser.DumpEntry, error)) ([]parser.DumpEntry, error) {
	if entries, ok := s.cachedEntries(ctx, key); ok {
		return entries, nil
	}

	ch := s.fills.DoChan(key, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.LookupTimeout)
		defer cancel()

		entries, err := fill(fillCtx)
		if err != nil {
			return nil, err
		}
		s.storeEntries(fillCtx, key, entries)
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]parser.DumpEntry), nil
	}
}

func (s *LookupService) cachedEntries(ctx context.Context, key string) ([]parser.DumpEntry, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Dump cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var entries []parser.DumpEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Warn("Discarding corrupt dump cache entry", "key", key, "error", err)
		return nil, false
	}
	return entries, true
}

func (s *LookupService) storeEntries(ctx context.Context, key string, entries []parser.DumpEntry) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.settings.DumpTTL); err != nil {
		s.logger.Warn("Dump cache write failed", "key", key, "error", err)
	}
}

// Invalidate drops every cached directory dump
func (s *LookupService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePrefix(ctx, "lookup:")
}

func dumpEntries(in []parser.DumpEntry) []models.LookupEntry {
	out := make([]models.LookupEntry, 0, len(in))
	for _, e := range in {
		out = append(out, models.LookupEntry{
			Node:     e.Node,
			Callsign: e.Callsign,
			Location: e.Location,
			IP:       e.IP,
		})
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}
