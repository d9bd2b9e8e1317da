package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ryotagoto/mokuhyo/internal/config"
	"github.com/ryotagoto/mokuhyo/internal/errors"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"
)

type operation int

const (
	opActive operation = iota
	opUpsert
	opDelete
	opAppendLog
	opAttemptCount
	opReadLog
)

type request struct {
	op       operation
	payload  interface{}
	result   chan error
	response chan interface{}
}

type activePayload struct {
	identity Identity
	now      time.Time
}

type deletePayload struct {
	identity Identity
}

type attemptPayload struct {
	sessionID string
	step      string
	now       time.Time
}

type readLogPayload struct {
	sessionID string
}

// Store serializes all session reads and writes through a single worker
// goroutine, which is what makes the per-identity upsert atomic: two turns
// for the same triple cannot interleave their read-patch-write cycles.
type Store struct {
	basePath  string
	inbox     chan request
	lock      *flock.Flock
	index     index
	ttl       time.Duration
	done      chan struct{}
	closeOnce chan struct{}
}

// Open acquires the workspace lock, loads the session index and starts the
// worker. The returned store must be closed to release the lock.
func Open(cfg config.SessionConfig) (*Store, error) {
	basePath := cfg.WorkspacePath
	if basePath == "" {
		return nil, errors.InvalidInput("session workspace path is empty")
	}
	if err := os.MkdirAll(filepath.Join(basePath, "sessions"), 0755); err != nil {
		return nil, errors.Persistence("create session workspace: " + err.Error())
	}

	ttl, err := config.DurationOrDefault(cfg.TTL, config.DefaultSessionTTL)
	if err != nil {
		return nil, err
	}

	lock, err := acquireLock(basePath, cfg)
	if err != nil {
		return nil, err
	}

	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = config.DefaultSessionInboxSize
	}

	s := &Store{
		basePath:  basePath,
		inbox:     make(chan request, inboxSize),
		lock:      lock,
		index:     index{Sessions: map[string]Session{}},
		ttl:       ttl,
		done:      make(chan struct{}),
		closeOnce: make(chan struct{}),
	}

	if err := s.loadIndex(); err != nil {
		lock.Unlock()
		return nil, err
	}

	go s.run()
	return s, nil
}

func acquireLock(basePath string, cfg config.SessionConfig) (*flock.Flock, error) {
	lockTimeout, err := config.DurationOrDefault(cfg.LockTimeout, config.DefaultSessionLockTimeout)
	if err != nil {
		return nil, err
	}
	lockRetry, err := config.DurationOrDefault(cfg.LockRetry, config.DefaultSessionLockRetry)
	if err != nil {
		return nil, err
	}
	maxRetry := cfg.LockMaxRetry
	if maxRetry <= 0 {
		maxRetry = config.DefaultSessionLockMaxRetry
	}

	lockPath := filepath.Join(basePath, "workspace.lock")
	lock := flock.New(lockPath)

	deadline := time.Now().Add(lockTimeout)
	for i := 0; i < maxRetry; i++ {
		locked, err := lock.TryLock()
		if err != nil {
			return nil, errors.Persistence("acquire workspace lock: " + err.Error())
		}
		if locked {
			slog.Info("Session workspace lock acquired", "path", lockPath)
			return lock, nil
		}
		if time.Now().After(deadline) {
			break
		}
		time.Sleep(lockRetry)
	}
	return nil, errors.Persistence(fmt.Sprintf("session workspace %s is locked by another instance", basePath))
}

func (s *Store) loadIndex() error {
	path := s.indexPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Persistence("read session index: " + err.Error())
	}
	if err := json.Unmarshal(data, &s.index); err != nil {
		return errors.Persistence("parse session index: " + err.Error())
	}
	if s.index.Sessions == nil {
		s.index.Sessions = map[string]Session{}
	}
	return nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.basePath, "sessions", "index.json")
}

func (s *Store) logPath(sessionID string) string {
	return filepath.Join(s.basePath, "sessions", sessionID+".jsonl")
}

// Close stops the worker and releases the workspace lock.
func (s *Store) Close() {
	select {
	case <-s.closeOnce:
		return
	default:
		close(s.closeOnce)
	}
	close(s.inbox)
	<-s.done
	if err := s.lock.Unlock(); err != nil {
		slog.Error("Failed to release session workspace lock", "error", err)
	}
}

func (s *Store) run() {
	defer close(s.done)
	for req := range s.inbox {
		err := s.handle(req)
		if req.result != nil {
			req.result <- err
		}
	}
}

func (s *Store) handle(req request) error {
	switch req.op {
	case opActive:
		p := req.payload.(activePayload)
		sess, ok := s.index.Sessions[p.identity.Key()]
		if !ok || !sess.Alive(p.now) {
			// Expiry is cooperative: an expired or terminal record is
			// simply absent, nothing sweeps it.
			req.response <- (*Session)(nil)
			return nil
		}
		copied := sess
		req.response <- &copied
		return nil

	case opUpsert:
		sess := req.payload.(Session)
		s.index.Sessions[sess.Identity.Key()] = sess
		return s.saveIndex()

	case opDelete:
		p := req.payload.(deletePayload)
		key := p.identity.Key()
		if sess, ok := s.index.Sessions[key]; ok {
			if err := os.Remove(s.logPath(sess.ID)); err != nil && !os.IsNotExist(err) {
				return errors.Persistence("remove interaction log: " + err.Error())
			}
			delete(s.index.Sessions, key)
			return s.saveIndex()
		}
		return nil

	case opAppendLog:
		entry := req.payload.(LogEntry)
		return s.appendLog(entry)

	case opAttemptCount:
		p := req.payload.(attemptPayload)
		count, err := s.attemptCount(p)
		req.response <- count
		return err

	case opReadLog:
		p := req.payload.(readLogPayload)
		entries, err := s.readLog(p.sessionID)
		req.response <- entries
		return err

	default:
		return errors.Internal(fmt.Sprintf("unknown store operation: %d", req.op))
	}
}

func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return errors.Persistence("marshal session index: " + err.Error())
	}
	if err := atomic.WriteFile(s.indexPath(), bytes.NewReader(data)); err != nil {
		return errors.Persistence("write session index: " + err.Error())
	}
	return nil
}

func (s *Store) appendLog(entry LogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Persistence("marshal log entry: " + err.Error())
	}

	f, err := os.OpenFile(s.logPath(entry.SessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Persistence("open interaction log: " + err.Error())
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return errors.Persistence("append interaction log: " + err.Error())
	}
	return f.Sync()
}

func (s *Store) readLog(sessionID string) ([]LogEntry, error) {
	data, err := os.ReadFile(s.logPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Persistence("read interaction log: " + err.Error())
	}

	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry LogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Warn("Skipping corrupt interaction log line", "session", sessionID)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// attemptCount derives the number of feedback rounds already given at a step:
// the retry entries in the trailing run of entries for that step, bounded by a
// rolling 24-hour window. A trailing run means the series restarts when the
// session leaves the step and later re-enters it. Non-retry entries in the run,
// such as the intro message, are not attempts.
func (s *Store) attemptCount(p attemptPayload) (int, error) {
	entries, err := s.readLog(p.sessionID)
	if err != nil {
		return 0, err
	}

	cutoff := p.now.Add(-24 * time.Hour)
	count := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Step != p.step || e.Timestamp.Before(cutoff) {
			break
		}
		if e.Result == ResultRetry {
			count++
		}
	}
	return count, nil
}

// --- public API; every call round-trips through the worker ---

// Active returns the live session for an identity, or nil when the identity
// has no session, the session expired, or it reached a terminal step.
func (s *Store) Active(ctx context.Context, identity Identity) (*Session, error) {
	res := make(chan error, 1)
	resp := make(chan interface{}, 1)
	s.inbox <- request{op: opActive, payload: activePayload{identity: identity, now: time.Now()}, result: res, response: resp}
	if err := <-res; err != nil {
		return nil, err
	}
	return (<-resp).(*Session), nil
}

// Upsert writes the session record, stamping UpdatedAt and sliding the TTL.
func (s *Store) Upsert(ctx context.Context, sess *Session) error {
	now := time.Now()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)

	res := make(chan error, 1)
	s.inbox <- request{op: opUpsert, payload: *sess, result: res}
	return <-res
}

// Delete removes the session record and its interaction log entirely; used by
// the explicit restart transition.
func (s *Store) Delete(ctx context.Context, identity Identity) error {
	res := make(chan error, 1)
	s.inbox <- request{op: opDelete, payload: deletePayload{identity: identity}, result: res}
	return <-res
}

// AppendLog appends one interaction record.
func (s *Store) AppendLog(ctx context.Context, entry LogEntry) error {
	res := make(chan error, 1)
	s.inbox <- request{op: opAppendLog, payload: entry, result: res}
	return <-res
}

// AttemptCount derives the attempt number for (session, step); see attemptCount.
func (s *Store) AttemptCount(ctx context.Context, sessionID, step string) (int, error) {
	res := make(chan error, 1)
	resp := make(chan interface{}, 1)
	s.inbox <- request{op: opAttemptCount, payload: attemptPayload{sessionID: sessionID, step: step, now: time.Now()}, result: res, response: resp}
	err := <-res
	count := (<-resp).(int)
	return count, err
}

// Log returns all interaction entries of a session, oldest first.
func (s *Store) Log(ctx context.Context, sessionID string) ([]LogEntry, error) {
	res := make(chan error, 1)
	resp := make(chan interface{}, 1)
	s.inbox <- request{op: opReadLog, payload: readLogPayload{sessionID: sessionID}, result: res, response: resp}
	err := <-res
	entries, _ := (<-resp).([]LogEntry)
	return entries, err
}

// TTL exposes the configured sliding window, used by callers creating sessions.
func (s *Store) TTL() time.Duration {
	return s.ttl
}
