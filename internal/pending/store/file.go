package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"voucher-ledger/internal/pending"
	"voucher-ledger/pkg/platform/sentinel"
)

// File persists pending requests in an append-only log of JSON lines: a put
// record per staged request, a tombstone per consume. Live state is held in
// memory and rebuilt from the log on open; compaction rewrites the log with
// tombstoned and expired entries discarded.
type File struct {
	mu         sync.Mutex
	path       string
	ttl        time.Duration
	out        *os.File
	live       map[string]*pending.Request
	tombstones int

	// compactAfter triggers an in-line compaction once that many tombstones
	// accumulate. Zero disables the automatic trigger.
	compactAfter int
}

type logRecord struct {
	Op      string           `json:"op"` // "put" | "del"
	Code    string           `json:"code,omitempty"`
	Request *pending.Request `json:"request,omitempty"`
}

const defaultCompactAfter = 256

// OpenFile opens (or creates) the append log at path and rebuilds live state
// from it. Entries already expired at open time are dropped and counted as
// tombstones so the next compaction reclaims them.
func OpenFile(path string, ttl time.Duration) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create pending log dir: %w", err)
	}

	s := &File{
		path:         path,
		ttl:          ttl,
		live:         make(map[string]*pending.Request),
		compactAfter: defaultCompactAfter,
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}

	out, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pending log: %w", err)
	}
	s.out = out
	return s, nil
}

func (s *File) rebuild() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open pending log: %w", err)
	}
	defer f.Close()

	now := time.Now()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec logRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			// A torn final line from a crash mid-append; everything before
			// it already parsed, so stop here and let compaction drop it.
			break
		}
		switch rec.Op {
		case "put":
			if rec.Request != nil {
				s.live[rec.Request.Code] = rec.Request
			}
		case "del":
			if _, ok := s.live[rec.Code]; ok {
				delete(s.live, rec.Code)
				s.tombstones++
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read pending log: %w", err)
	}

	for code, req := range s.live {
		if req.Expired(s.ttl, now) {
			delete(s.live, code)
			s.tombstones++
		}
	}
	return nil
}

func (s *File) Put(ctx context.Context, req *pending.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[req.Code]; ok {
		return fmt.Errorf("redemption code %s: %w", req.Code, sentinel.ErrConflict)
	}
	if err := s.appendLocked(logRecord{Op: "put", Request: req}); err != nil {
		return err
	}
	s.live[req.Code] = req.Clone()
	return nil
}

func (s *File) Get(ctx context.Context, code string) (*pending.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.live[code]; ok {
		return req.Clone(), nil
	}
	return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
}

func (s *File) Take(ctx context.Context, code string) (*pending.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.live[code]
	if !ok {
		return nil, fmt.Errorf("redemption code %s: %w", code, sentinel.ErrNotFound)
	}
	if err := s.removeLocked(code); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *File) Delete(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live[code]; !ok {
		return nil
	}
	return s.removeLocked(code)
}

// removeLocked tombstones an entry known to be live and compacts once enough
// tombstones accumulate.
func (s *File) removeLocked(code string) error {
	if err := s.appendLocked(logRecord{Op: "del", Code: code}); err != nil {
		return err
	}
	delete(s.live, code)
	s.tombstones++

	if s.compactAfter > 0 && s.tombstones >= s.compactAfter {
		return s.compactLocked()
	}
	return nil
}

// Compact rewrites the log keeping only live, unexpired entries.
func (s *File) Compact(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compactLocked()
}

// Len reports the number of live entries; used by tests and the compactor.
func (s *File) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// Close flushes and closes the log file.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.out == nil {
		return nil
	}
	err := s.out.Close()
	s.out = nil
	return err
}

func (s *File) appendLocked(rec logRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal pending log record: %w", err)
	}
	line = append(line, '\n')
	if _, err := s.out.Write(line); err != nil {
		return fmt.Errorf("append pending log: %w", err)
	}
	return nil
}

func (s *File) compactLocked() error {
	now := time.Now()
	for code, req := range s.live {
		if req.Expired(s.ttl, now) {
			delete(s.live, code)
		}
	}

	tmp := s.path + ".compact"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open compaction file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, req := range s.live {
		line, err := json.Marshal(logRecord{Op: "put", Request: req})
		if err != nil {
			f.Close()
			return fmt.Errorf("marshal pending log record: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			f.Close()
			return fmt.Errorf("write compaction file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush compaction file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync compaction file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close compaction file: %w", err)
	}

	if s.out != nil {
		if err := s.out.Close(); err != nil {
			return fmt.Errorf("close pending log: %w", err)
		}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("swap compacted log: %w", err)
	}
	out, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("reopen pending log: %w", err)
	}
	s.out = out
	s.tombstones = 0
	return nil
}
