package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kilianp07/usdplan/core/model"
	corestore "github.com/kilianp07/usdplan/core/store"
	"github.com/kilianp07/usdplan/infra/logger"
)

type jsonlRecord struct {
	Summary corestore.Summary `json:"summary"`
	Result  model.Result      `json:"result"`
}

// JSONLStore appends results to a rotating JSONL file. Reads keep the last
// record written for each period.
type JSONLStore struct {
	out     *lumberjack.Logger
	path    string
	mu      sync.Mutex
	now     func() time.Time
	log     logger.Logger
	skipped int
}

// NewJSONLStore creates a store with rotation options in megabytes and days.
// A zero maxSizeMB uses the lumberjack default of 100 MB.
func NewJSONLStore(path string, maxSizeMB, maxBackups, maxAgeDays int) (*JSONLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}
	return &JSONLStore{out: lj, path: path, now: time.Now, log: logger.New("jsonl_store")}, nil
}

// Save appends the result.
func (s *JSONLStore) Save(_ context.Context, res model.Result) error {
	rec := jsonlRecord{Summary: corestore.Summarize(res, s.now().UTC()), Result: res}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("save %s: %w", res.Period, err)
	}
	return nil
}

// Get returns the latest result of p.
func (s *JSONLStore) Get(_ context.Context, p model.Period) (model.Result, error) {
	latest, err := s.latest()
	if err != nil {
		return model.Result{}, err
	}
	rec, ok := latest[p]
	if !ok {
		return model.Result{}, fmt.Errorf("%s: %w", p, corestore.ErrNotFound)
	}
	return rec.Result, nil
}

// List returns the latest summary of each period matching q.
func (s *JSONLStore) List(_ context.Context, q corestore.Query) ([]corestore.Summary, error) {
	latest, err := s.latest()
	if err != nil {
		return nil, err
	}
	var res []corestore.Summary
	for _, rec := range latest {
		if q.Match(rec.Summary) {
			res = append(res, rec.Summary)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		a, b := res[i].Period, res[j].Period
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return res, nil
}

// latest reads rotated backups first, then the active file, so later
// writes override earlier ones.
func (s *JSONLStore) latest() (map[model.Period]jsonlRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ext := filepath.Ext(s.path)
	prefix := s.path[:len(s.path)-len(ext)]
	backups, err := filepath.Glob(prefix + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(backups)
	files := append(backups, s.path)
	out := make(map[model.Period]jsonlRecord)
	s.skipped = 0
	for _, f := range files {
		if err := s.read(f, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// read loads path into the map. Undecodable lines are skipped and logged;
// an earlier record of the same period then stays visible.
func (s *JSONLStore) read(path string, into map[model.Period]jsonlRecord) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var rec jsonlRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			s.skipped++
			s.log.Warnf("%s:%d: skipping unreadable record: %v", path, line, err)
			continue
		}
		into[rec.Result.Period] = rec
	}
	return scanner.Err()
}

// Skipped returns the number of unreadable lines found by the last read.
func (s *JSONLStore) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

// Close closes the underlying writer.
func (s *JSONLStore) Close() error {
	return s.out.Close()
}
