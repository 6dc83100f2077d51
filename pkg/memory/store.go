package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/interview"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/logger"
	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

// Config bounds how much a Store remembers.
type Config struct {
	MaxMemoryHours            int
	MaxInteractionsPerSession int
	TrendSnapshotLimit        int
}

func DefaultConfig() Config {
	return Config{
		MaxMemoryHours:            24,
		MaxInteractionsPerSession: 100,
		TrendSnapshotLimit:        20,
	}
}

// Archiver receives a snapshot of every session the store forgets.
type Archiver interface {
	SaveSnapshot(ctx context.Context, snap Snapshot, reason string) error
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithArchiver(a Archiver) Option {
	return func(s *Store) { s.archiver = a }
}

// Store keeps the conversation state of every live interview session.
type Store struct {
	cfg      Config
	now      func() time.Time
	archiver Archiver

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	mu sync.Mutex

	id              string
	topic           string
	difficulty      interview.Difficulty
	startTime       time.Time
	interactions    []InteractionLog
	currentQuestion string
	covered         []string
	coveredSet      map[string]struct{}
	summary         *ContextSummary
	trends          []TrendSnapshot

	// samples is the performance index; it survives eviction.
	samples []PerformanceSample
}

func NewStore(cfg Config, opts ...Option) *Store {
	def := DefaultConfig()
	if cfg.MaxMemoryHours <= 0 {
		cfg.MaxMemoryHours = def.MaxMemoryHours
	}
	if cfg.MaxInteractionsPerSession < 2 {
		cfg.MaxInteractionsPerSession = def.MaxInteractionsPerSession
	}
	if cfg.TrendSnapshotLimit <= 0 {
		cfg.TrendSnapshotLimit = def.TrendSnapshotLimit
	}
	s := &Store{
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Config() Config { return s.cfg }

// InitializeSession creates empty memory for id.
func (s *Store) InitializeSession(id, topic string, difficulty interview.Difficulty) error {
	id = strings.TrimSpace(id)
	topic = strings.TrimSpace(topic)
	if id == "" {
		return fmt.Errorf("%w: session id is required", ErrValidation)
	}
	if topic == "" {
		return fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if !difficulty.Valid() {
		return fmt.Errorf("%w: invalid difficulty %q", ErrValidation, difficulty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	s.sessions[id] = &session{
		id:         id,
		topic:      topic,
		difficulty: difficulty,
		startTime:  s.now(),
		coveredSet: make(map[string]struct{}),
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	logger.DebugCF("memory", "Session initialized", map[string]interface{}{
		"session_id": id,
		"topic":      topic,
		"difficulty": string(difficulty),
	})
	return nil
}

func (s *Store) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// AddInteraction appends one exchange and enforces the window bound before returning.
func (s *Store) AddInteraction(id string, in NewInteraction) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	kind := in.Kind
	if kind == "" {
		kind = interview.KindGeneral
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown question kind %q", ErrValidation, in.Kind)
	}
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	entry := InteractionLog{
		Timestamp:  ts,
		Question:   in.Question,
		Answer:     in.Answer,
		Evaluation: cloneEvaluation(in.Evaluation),
		Feedback:   in.Feedback,
		Context:    cloneContext(in.Context),
		Kind:       kind,
		Topics:     cloneStrings(in.Topics),
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.interactions = append(sess.interactions, entry)
	for _, t := range entry.Topics {
		if _, ok := sess.coveredSet[t]; ok {
			continue
		}
		sess.coveredSet[t] = struct{}{}
		sess.covered = append(sess.covered, t)
	}
	if entry.Evaluation != nil {
		sess.samples = append(sess.samples, PerformanceSample{
			Timestamp:  ts,
			Evaluation: *cloneEvaluation(entry.Evaluation),
			Kind:       kind,
			Difficulty: sess.difficulty,
		})
		sess.trends = append(sess.trends, TrendSnapshot{
			Timestamp: ts,
			Average:   entry.Evaluation.Scores.Average(),
			Scores:    entry.Evaluation.Scores,
			Kind:      kind,
		})
		if over := len(sess.trends) - s.cfg.TrendSnapshotLimit; over > 0 {
			sess.trends = append([]TrendSnapshot(nil), sess.trends[over:]...)
		}
	}
	switch {
	case in.OpenQuestion != "":
		sess.currentQuestion = in.OpenQuestion
	case in.Question != "":
		sess.currentQuestion = in.Question
	}

	s.enforceBound(sess)
	return nil
}

// SetDifficulty records a difficulty change decided by the orchestrator.
func (s *Store) SetDifficulty(id string, d interview.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("%w: invalid difficulty %q", ErrValidation, d)
	}
	sess, err := s.get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.difficulty = d
	sess.mu.Unlock()
	return nil
}

// CleanupSession forgets id, archiving it first when an archiver is configured.
func (s *Store) CleanupSession(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.archive(ctx, sess.snapshot(s.now()), "cleanup")
	logger.InfoCF("memory", "Cleaned up session memory", map[string]interface{}{"session_id": id})
	return nil
}

// CleanupExpiredSessions drops every session that started more than
// MaxMemoryHours ago and returns their ids.
func (s *Store) CleanupExpiredSessions(ctx context.Context) ([]string, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.MaxMemoryHours) * time.Hour)

	s.mu.Lock()
	var expired []*session
	for id, sess := range s.sessions {
		if sess.startedBefore(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	now := s.now()
	for _, sess := range expired {
		ids = append(ids, sess.id)
		// Sessions are already gone from memory; a cancelled ctx only skips archiving.
		if ctx.Err() == nil {
			s.archive(ctx, sess.snapshot(now), "expired")
		}
	}
	sort.Strings(ids)

	if len(ids) > 0 {
		metrics.ExpiredSessionsTotal.Add(float64(len(ids)))
		logger.InfoCF("memory", "Cleaned up expired sessions", map[string]interface{}{
			"count":  len(ids),
			"cutoff": cutoff.Format(time.RFC3339),
		})
	}
	return ids, ctx.Err()
}

func (s *Store) archive(ctx context.Context, snap Snapshot, reason string) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.SaveSnapshot(ctx, snap, reason); err != nil {
		logger.WarnCF("memory", "Failed to archive session", map[string]interface{}{
			"session_id": snap.SessionID,
			"reason":     reason,
			"error":      err.Error(),
		})
	}
}

// SessionIDs returns the live session ids in sorted order.
func (s *Store) SessionIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (sess *session) startedBefore(t time.Time) bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.startTime.Before(t)
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneContext(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneEvaluation(ev *interview.Evaluation) *interview.Evaluation {
	if ev == nil {
		return nil
	}
	cp := *ev
	cp.Analysis.Strengths = cloneStrings(ev.Analysis.Strengths)
	cp.Analysis.Weaknesses = cloneStrings(ev.Analysis.Weaknesses)
	cp.Analysis.MissingTopics = cloneStrings(ev.Analysis.MissingTopics)
	cp.Analysis.TechnicalErrors = cloneStrings(ev.Analysis.TechnicalErrors)
	cp.NextSteps.SpecificAreasToExplore = cloneStrings(ev.NextSteps.SpecificAreasToExplore)
	return &cp
}

func cloneLog(l InteractionLog, withEvaluation bool) InteractionLog {
	out := l
	out.Topics = cloneStrings(l.Topics)
	out.Context = cloneContext(l.Context)
	out.Evaluation = nil
	if withEvaluation {
		out.Evaluation = cloneEvaluation(l.Evaluation)
	}
	return out
}
