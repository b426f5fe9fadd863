package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ProtocolResult tracks the outcome of replenishing a single protocol.
type ProtocolResult struct {
	ProtocolID  string `json:"protocolId"`
	PeptideName string `json:"peptideName"`
	Scheduled   int    `json:"scheduled"`
	Message     string `json:"message"`
}

// ProtocolError records a per-protocol replenishment failure.
type ProtocolError struct {
	ProtocolID string `json:"protocolId"`
	Error      string `json:"error"`
}

// SweepResult tracks the outcome of a full replenishment sweep.
type SweepResult struct {
	Processed   int              `json:"processed"`
	Replenished int              `json:"replenished"`
	ErrorCount  int              `json:"errorCount"`
	Results     []ProtocolResult `json:"results"`
	Errors      []ProtocolError  `json:"errors"`
	Duration    time.Duration    `json:"-"`
}

// Summary returns a human-readable summary.
func (r *SweepResult) Summary() string {
	return fmt.Sprintf("processed=%d replenished=%d errors=%d dur=%s",
		r.Processed, r.Replenished, r.ErrorCount, r.Duration.Round(time.Millisecond))
}

// Replenish tops up the reminder queue for every active protocol that has
// dropped below ReplenishThresholdDays of coverage. Coverage is estimated
// as futureCount/AssumedRemindersPerDay. Top-ups append over a
// ReplenishWindowDays horizon and never delete existing rows.
//
// Uses a worker pool across protocols. One protocol's failure is recorded
// and never cancels the others; only a failure to list active protocols
// aborts the sweep.
func (s *Scheduler) Replenish(ctx context.Context, workers int) (*SweepResult, error) {
	start := time.Now()

	protocols, err := s.queue.ActiveProtocols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active protocols: %w", err)
	}

	result := &SweepResult{
		Processed: len(protocols),
		Results:   []ProtocolResult{},
		Errors:    []ProtocolError{},
	}
	if len(protocols) == 0 {
		s.logger.Info("No active protocols to replenish")
		result.Duration = time.Since(start)
		return result, nil
	}

	s.logger.Info("Replenish sweep started", "protocols", len(protocols))

	if workers < 1 {
		workers = 1
	}
	if workers > len(protocols) {
		workers = len(protocols)
	}

	ch := make(chan Protocol, len(protocols))
	for _, p := range protocols {
		ch <- p
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for protocol := range ch {
				outcome, replenished, err := s.replenishOne(ctx, protocol)

				mu.Lock()
				if err != nil {
					s.logger.Warn("Replenish failed",
						"protocol_id", protocol.ID, "error", err)
					result.Errors = append(result.Errors, ProtocolError{
						ProtocolID: protocol.ID,
						Error:      err.Error(),
					})
				} else if replenished {
					result.Replenished++
					result.Results = append(result.Results, ProtocolResult{
						ProtocolID:  protocol.ID,
						PeptideName: protocol.PeptideName,
						Scheduled:   outcome.Scheduled,
						Message:     outcome.Message,
					})
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	result.ErrorCount = len(result.Errors)
	result.Duration = time.Since(start)

	s.logger.Info("Replenish sweep complete", "summary", result.Summary())
	return result, nil
}

// replenishOne checks one protocol's coverage and tops it up when low.
// replenished is false when coverage was still sufficient.
func (s *Scheduler) replenishOne(ctx context.Context, protocol Protocol) (outcome *ScheduleOutcome, replenished bool, err error) {
	futureCount, err := s.queue.CountFutureUnsent(ctx, protocol.ID, s.now())
	if err != nil {
		return nil, false, err
	}

	daysRemaining := futureCount / AssumedRemindersPerDay
	if daysRemaining >= ReplenishThresholdDays {
		s.logger.Debug("Coverage sufficient, skipping",
			"protocol_id", protocol.ID, "days_remaining", daysRemaining)
		return nil, false, nil
	}

	s.logger.Info("Coverage low, replenishing",
		"protocol_id", protocol.ID, "days_remaining", daysRemaining)

	outcome, err = s.ScheduleProtocol(ctx, protocol.UserID, protocol.ID, ScheduleOptions{
		WindowDays: ReplenishWindowDays,
		Replace:    false,
	})
	if err != nil {
		return nil, false, err
	}
	return outcome, true, nil
}
