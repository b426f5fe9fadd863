package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/resetbiology/reminders/internal/schedule"
)

// fakeQueue is an in-memory Queue with the same write semantics as Store:
// replace deletes unsent rows for the pair before inserting, append skips
// dose times already queued unsent.
type fakeQueue struct {
	mu        sync.Mutex
	protocols map[string]Protocol
	prefs     map[string]*Preference
	rows      []Pending
	nextID    int

	listErr  error
	writeErr map[string]error // protocolID -> error
	countErr map[string]error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		protocols: map[string]Protocol{},
		prefs:     map[string]*Preference{},
		writeErr:  map[string]error{},
		countErr:  map[string]error{},
	}
}

func prefKey(userID, protocolID string) string { return userID + "|" + protocolID }

func (q *fakeQueue) addProtocol(p Protocol) { q.protocols[p.ID] = p }

func (q *fakeQueue) addPreference(p Preference) {
	q.prefs[prefKey(p.UserID, p.ProtocolID)] = &p
}

func (q *fakeQueue) ProtocolByID(_ context.Context, id string) (*Protocol, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.protocols[id]
	if !ok {
		return nil, fmt.Errorf("protocol %s not found", id)
	}
	return &p, nil
}

func (q *fakeQueue) ActiveProtocols(_ context.Context) ([]Protocol, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.listErr != nil {
		return nil, q.listErr
	}
	var active []Protocol
	for _, p := range q.protocols {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

func (q *fakeQueue) PreferenceFor(_ context.Context, userID, protocolID string) (*Preference, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.prefs[prefKey(userID, protocolID)]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (q *fakeQueue) SavePreference(_ context.Context, p *Preference) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *p
	q.prefs[prefKey(p.UserID, p.ProtocolID)] = &cp
	return nil
}

func (q *fakeQueue) CountFutureUnsent(_ context.Context, protocolID string, since time.Time) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.countErr[protocolID]; err != nil {
		return 0, err
	}
	n := 0
	for _, r := range q.rows {
		if r.ProtocolID == protocolID && !r.Sent && !r.ReminderTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (q *fakeQueue) DeleteUnsent(_ context.Context, userID, protocolID string) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.deleteUnsentLocked(userID, protocolID), nil
}

func (q *fakeQueue) deleteUnsentLocked(userID, protocolID string) int64 {
	kept := q.rows[:0]
	var removed int64
	for _, r := range q.rows {
		if r.UserID == userID && r.ProtocolID == protocolID && !r.Sent {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	q.rows = kept
	return removed
}

func (q *fakeQueue) Write(_ context.Context, userID, protocolID string, pairs []schedule.Pair, mode WriteMode) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.writeErr[protocolID]; err != nil {
		return 0, err
	}

	if mode == Replace {
		q.deleteUnsentLocked(userID, protocolID)
	} else {
		queued := map[int64]struct{}{}
		for _, r := range q.rows {
			if r.UserID == userID && r.ProtocolID == protocolID && !r.Sent {
				queued[r.DoseTime.UnixNano()] = struct{}{}
			}
		}
		pairs = withoutQueued(pairs, queued)
	}

	for _, p := range pairs {
		q.nextID++
		q.rows = append(q.rows, Pending{
			ID:           fmt.Sprintf("n%d", q.nextID),
			UserID:       userID,
			ProtocolID:   protocolID,
			DoseTime:     p.DoseTime,
			ReminderTime: p.ReminderTime,
			Type:         TypePush,
		})
	}
	return len(pairs), nil
}

func (q *fakeQueue) Insert(_ context.Context, p *Pending) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	if p.ID == "" {
		p.ID = fmt.Sprintf("n%d", q.nextID)
	}
	q.rows = append(q.rows, *p)
	return nil
}

// unsentRows returns a copy of the unsent rows for a protocol.
func (q *fakeQueue) unsentRows(protocolID string) []Pending {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []Pending
	for _, r := range q.rows {
		if r.ProtocolID == protocolID && !r.Sent {
			out = append(out, r)
		}
	}
	return out
}
