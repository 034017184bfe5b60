package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tsawler/pagedecode/core"
)

var (
	// ErrDanglingReference is returned when a reference has no in-use
	// cross-reference entry.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrNotAuthenticated is returned when an encrypted document is read
	// before a security context has been installed.
	ErrNotAuthenticated = errors.New("document is encrypted and not authenticated")
)

// Decrypter decrypts strings and stream data of indirect objects.
// security.Context implements it.
type Decrypter interface {
	DecryptString(ref core.ObjectRef, data []byte) ([]byte, error)
	DecryptStream(ref core.ObjectRef, dict core.Dict, data []byte) ([]byte, error)
}

// Stats counts cache activity.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Parses    int64
	Decodes   int64
}

// Store resolves and caches indirect objects of one document. It is safe
// for concurrent use; the first resolution of each object is single-flight.
type Store struct {
	src    core.Source
	xref   atomic.Pointer[core.XRefTable]
	limits core.Limits
	logger *slog.Logger

	objects *lru[core.ObjectRef, core.Object]
	streams *lru[core.ObjectRef, []byte]
	objStms *lru[int, *core.ObjectStream]
	group   singleflight.Group

	mu         sync.RWMutex
	encrypted  bool
	encryptRef core.ObjectRef
	decrypter  Decrypter

	hits, misses, evictions, parses, decodes atomic.Int64
}

// Option configures a Store.
type Option func(*Store)

// WithCacheBudget bounds the number of cached objects. Zero or less means
// unbounded.
func WithCacheBudget(entries int) Option {
	return func(s *Store) { s.objects.budget = int64(entries) }
}

// WithStreamCacheSize bounds the total bytes of cached decoded streams.
func WithStreamCacheSize(bytes int64) Option {
	return func(s *Store) { s.streams.budget = bytes }
}

// WithLimits sets parsing and decoding limits.
func WithLimits(l core.Limits) Option {
	return func(s *Store) { s.limits = l }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Default cache sizes.
const (
	DefaultCacheBudget     = 4096
	DefaultStreamCacheSize = 32 << 20
)

// New creates a store over src using the cross-reference table xref.
func New(src core.Source, xref *core.XRefTable, opts ...Option) *Store {
	s := &Store{
		src:     src,
		limits:  core.DefaultLimits(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		objects: newLRU[core.ObjectRef, core.Object](DefaultCacheBudget, func(core.Object) int64 { return 1 }),
		streams: newLRU[core.ObjectRef, []byte](DefaultStreamCacheSize, func(b []byte) int64 { return int64(len(b)) }),
		objStms: newLRU[int, *core.ObjectStream](64, func(*core.ObjectStream) int64 { return 1 }),
	}
	count := func() { s.evictions.Add(1) }
	s.objects.evicted = count
	s.streams.evicted = count
	s.xref.Store(xref)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// XRef returns the current cross-reference table.
func (s *Store) XRef() *core.XRefTable { return s.xref.Load() }

// Trailer returns the trailer dictionary.
func (s *Store) Trailer() core.Dict { return s.xref.Load().Trailer }

// Source returns the byte source.
func (s *Store) Source() core.Source { return s.src }

// Limits returns the parsing limits.
func (s *Store) Limits() core.Limits { return s.limits }

// SetXRef replaces the cross-reference table, as happens when the full
// table of a linearized file becomes available. Cached objects stay valid.
func (s *Store) SetXRef(x *core.XRefTable) { s.xref.Store(x) }

// SetEncrypted marks the document as encrypted. Until SetDecrypter is
// called only the encryption dictionary at ref can be resolved.
func (s *Store) SetEncrypted(ref core.ObjectRef) {
	s.mu.Lock()
	s.encrypted = true
	s.encryptRef = ref
	s.mu.Unlock()
}

// SetDecrypter installs the authenticated security context. Objects
// resolved earlier without it are dropped.
func (s *Store) SetDecrypter(d Decrypter) {
	s.mu.Lock()
	s.decrypter = d
	s.mu.Unlock()
	s.Flush()
}

func (s *Store) access() (Decrypter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.decrypter, !s.encrypted || s.decrypter != nil
}

// SetCacheBudget changes the object cache bound and evicts as needed.
func (s *Store) SetCacheBudget(entries int) { s.objects.setBudget(int64(entries)) }

// SetStreamCacheSize changes the decoded-stream byte budget.
func (s *Store) SetStreamCacheSize(bytes int64) { s.streams.setBudget(bytes) }

// Flush drops every cached object and stream.
func (s *Store) Flush() {
	s.objects.clear()
	s.streams.clear()
	s.objStms.clear()
}

// Stats returns a snapshot of the cache counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Parses:    s.parses.Load(),
		Decodes:   s.decodes.Load(),
	}
}

// Cached reports how many objects are held in the cache.
func (s *Store) Cached() int { return s.objects.len() }

// Resolve returns the indirect object num gen.
func (s *Store) Resolve(ctx context.Context, num, gen int) (*core.IndirectObject, error) {
	ref := core.ObjectRef{Num: num, Gen: gen}
	obj, err := s.resolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &core.IndirectObject{Ref: ref, Object: obj}, nil
}

func (s *Store) resolveRef(ctx context.Context, ref core.ObjectRef) (core.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, allowed := s.access()
	if !allowed && ref != s.encryptRefValue() {
		return nil, fmt.Errorf("object %v: %w", ref, ErrNotAuthenticated)
	}
	if obj, ok := s.objects.get(ref); ok {
		s.hits.Add(1)
		return obj, nil
	}
	s.misses.Add(1)

	v, err, _ := s.group.Do("o"+refKey(ref), func() (interface{}, error) {
		if obj, ok := s.objects.get(ref); ok {
			return obj, nil
		}
		obj, err := s.load(ctx, ref, 0)
		if err != nil {
			return nil, err
		}
		s.objects.put(ref, obj)
		return obj, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(core.Object), nil
}

func (s *Store) encryptRefValue() core.ObjectRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.encryptRef
}

func (s *Store) load(ctx context.Context, ref core.ObjectRef, depth int) (core.Object, error) {
	entry, ok := s.xref.Load().Get(ref.Num)
	if !ok || entry.Type == core.EntryFree {
		return nil, fmt.Errorf("object %v: %w", ref, ErrDanglingReference)
	}
	if entry.Type == core.EntryCompressed {
		return s.loadCompressed(ctx, ref, entry)
	}
	if entry.Generation != ref.Gen {
		s.logger.Debug("generation mismatch", "obj", ref.Num, "gen", ref.Gen, "xref_gen", entry.Generation)
	}

	ind, err := s.parseAt(ctx, ref, entry.Offset, depth)
	if err != nil {
		return nil, err
	}
	s.parses.Add(1)
	if ind.Ref.Num != ref.Num {
		return nil, fmt.Errorf("object %v: offset %d holds object %v: %w", ref, entry.Offset, ind.Ref, core.ErrMalformedObject)
	}

	dec, _ := s.access()
	if dec == nil || ref == s.encryptRefValue() {
		return ind.Object, nil
	}
	return decryptObject(dec, ref, ind.Object)
}

// parseAt parses the object at offset, waiting for more bytes of a
// progressive source while the object is incomplete.
func (s *Store) parseAt(ctx context.Context, ref core.ObjectRef, offset int64, depth int) (*core.IndirectObject, error) {
	want := offset + 4096
	for {
		if err := s.src.Wait(ctx, want); err != nil {
			return nil, err
		}
		data := s.src.Bytes()
		if offset >= int64(len(data)) {
			if s.src.Complete() {
				return nil, fmt.Errorf("object %v: offset %d beyond end of file: %w", ref, offset, ErrDanglingReference)
			}
			want = offset + 4096
			continue
		}
		p := core.NewParser(data, 0)
		p.SetLimits(s.limits)
		p.SetReferenceResolver(lengthResolver{s: s, ctx: ctx, depth: depth})
		p.Lexer().Seek(int(offset))
		ind, err := p.ParseIndirect()
		if err == nil {
			return ind, nil
		}
		if s.src.Complete() {
			return nil, fmt.Errorf("object %v: %w", ref, err)
		}
		want = int64(len(data)) * 2
	}
}

// lengthResolver resolves indirect /Length values during parsing. It
// bypasses single-flight so a length chain that loops back to the object
// being parsed ends at the depth bound instead of waiting on itself.
type lengthResolver struct {
	s     *Store
	ctx   context.Context
	depth int
}

const maxLengthDepth = 4

func (r lengthResolver) ResolveReference(ref core.ObjectRef) (core.Object, error) {
	if obj, ok := r.s.objects.get(ref); ok {
		return obj, nil
	}
	if r.depth >= maxLengthDepth {
		return nil, fmt.Errorf("object %v: /Length chain too deep: %w", ref, core.ErrMalformedObject)
	}
	return r.s.load(r.ctx, ref, r.depth+1)
}

func (s *Store) loadCompressed(ctx context.Context, ref core.ObjectRef, entry core.XRefEntry) (core.Object, error) {
	os, err := s.objectStream(ctx, entry.StreamNum)
	if err != nil {
		return nil, fmt.Errorf("object %v: %w", ref, err)
	}
	s.parses.Add(1)
	return os.Object(ref.Num, entry.Index, s.limits)
}

func (s *Store) objectStream(ctx context.Context, num int) (*core.ObjectStream, error) {
	if os, ok := s.objStms.get(num); ok {
		return os, nil
	}
	v, err, _ := s.group.Do("m"+strconv.Itoa(num), func() (interface{}, error) {
		ref := core.ObjectRef{Num: num}
		obj, err := s.resolveRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object stream %d is %s: %w", num, obj.Kind(), core.ErrMalformedObject)
		}
		data, err := stream.DecodeLimit(s.limits.MaxDecompressedSize)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", num, err)
		}
		os, err := core.NewObjectStream(stream.Dict, data)
		if err != nil {
			return nil, err
		}
		s.objStms.put(num, os)
		return os, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*core.ObjectStream), nil
}

// DecodedStream returns the fully filtered data of the stream object ref.
// Results are cached against the stream cache byte budget.
func (s *Store) DecodedStream(ctx context.Context, ref core.ObjectRef) ([]byte, error) {
	if data, ok := s.streams.get(ref); ok {
		s.hits.Add(1)
		return data, nil
	}
	v, err, _ := s.group.Do("s"+refKey(ref), func() (interface{}, error) {
		obj, err := s.resolveRef(ctx, ref)
		if err != nil {
			return nil, err
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("object %v is %s, not a stream: %w", ref, obj.Kind(), core.ErrMalformedObject)
		}
		data, err := stream.DecodeLimit(s.limits.MaxDecompressedSize)
		if err != nil {
			return nil, fmt.Errorf("stream %v: %w", ref, err)
		}
		s.decodes.Add(1)
		s.streams.put(ref, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// StreamData resolves obj to a stream and returns its dictionary and
// decoded data.
func (s *Store) StreamData(ctx context.Context, obj core.Object) (*core.Stream, []byte, error) {
	if ref, ok := obj.(core.ObjectRef); ok {
		resolved, err := s.resolveRef(ctx, ref)
		if err != nil {
			return nil, nil, err
		}
		stream, ok := resolved.(*core.Stream)
		if !ok {
			return nil, nil, fmt.Errorf("object %v is %s, not a stream: %w", ref, resolved.Kind(), core.ErrMalformedObject)
		}
		data, err := s.DecodedStream(ctx, ref)
		return stream, data, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, nil, fmt.Errorf("expected stream, got %T: %w", obj, core.ErrMalformedObject)
	}
	data, err := stream.DecodeLimit(s.limits.MaxDecompressedSize)
	return stream, data, err
}

func refKey(ref core.ObjectRef) string {
	return strconv.Itoa(ref.Num) + "_" + strconv.Itoa(ref.Gen)
}
