package memory

import (
	"fmt"
	"strings"
	"time"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/metrics"
)

// Snapshot copies the full state of a live session.
func (s *Store) Snapshot(id string) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.snapshot(s.now()), nil
}

func (sess *session) snapshot(at time.Time) Snapshot {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	logs := make([]InteractionLog, 0, len(sess.interactions))
	for _, l := range sess.interactions {
		logs = append(logs, cloneLog(l, true))
	}
	samples := make([]PerformanceSample, 0, len(sess.samples))
	for _, p := range sess.samples {
		cp := p
		cp.Evaluation = *cloneEvaluation(&p.Evaluation)
		samples = append(samples, cp)
	}
	return Snapshot{
		SessionID:          sess.id,
		Topic:              sess.topic,
		Difficulty:         sess.difficulty,
		StartTime:          sess.startTime,
		CurrentQuestion:    sess.currentQuestion,
		CoveredTopics:      cloneStrings(sess.covered),
		Interactions:       logs,
		Summary:            cloneSummary(sess.summary),
		TrendSnapshots:     append([]TrendSnapshot(nil), sess.trends...),
		PerformanceSamples: samples,
		TakenAt:            at,
	}
}

// Restore loads a snapshot back into the store as a live session.
func (s *Store) Restore(snap Snapshot) error {
	id := strings.TrimSpace(snap.SessionID)
	if id == "" || strings.TrimSpace(snap.Topic) == "" {
		return fmt.Errorf("%w: snapshot needs a session id and topic", ErrValidation)
	}
	if !snap.Difficulty.Valid() {
		return fmt.Errorf("%w: snapshot has invalid difficulty %q", ErrValidation, snap.Difficulty)
	}

	sess := &session{
		id:              id,
		topic:           snap.Topic,
		difficulty:      snap.Difficulty,
		startTime:       snap.StartTime,
		currentQuestion: snap.CurrentQuestion,
		coveredSet:      make(map[string]struct{}),
		trends:          append([]TrendSnapshot(nil), snap.TrendSnapshots...),
	}
	for _, t := range snap.CoveredTopics {
		if _, ok := sess.coveredSet[t]; ok {
			continue
		}
		sess.coveredSet[t] = struct{}{}
		sess.covered = append(sess.covered, t)
	}
	for _, l := range snap.Interactions {
		cp := cloneLog(l, true)
		if cp.Topics == nil {
			cp.Topics = []string{}
		}
		sess.interactions = append(sess.interactions, cp)
		// covered topics are a superset of every logged label
		for _, t := range cp.Topics {
			if _, ok := sess.coveredSet[t]; !ok {
				sess.coveredSet[t] = struct{}{}
				sess.covered = append(sess.covered, t)
			}
		}
	}
	for _, p := range snap.PerformanceSamples {
		cp := p
		cp.Evaluation = *cloneEvaluation(&p.Evaluation)
		sess.samples = append(sess.samples, cp)
	}
	sess.summary = cloneSummary(snap.Summary)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, id)
	}
	s.sessions[id] = sess
	metrics.ActiveSessions.Set(float64(len(s.sessions)))

	sess.mu.Lock()
	s.enforceBound(sess)
	sess.mu.Unlock()
	return nil
}
