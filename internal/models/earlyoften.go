package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidBatch = errors.New("invalid edit batch")

// Batch holds the edit counts derived from one set of new sensor events.
// WeightedEdits is Edits scaled by how early each edit happened, so it is
// never smaller than Edits.
type Batch struct {
	Edits         int64
	WeightedEdits int64
}

// EarlyOften is the running "early/often" engagement score of a student
// project: the mean weight per edit over every batch folded in so far.
type EarlyOften struct {
	TotalEdits         int64
	TotalWeightedEdits int64
	Score              float64
	LastUpdated        time.Time
}

func (b Batch) validate() error {
	if b.Edits < 0 || b.WeightedEdits < 0 {
		return fmt.Errorf("%w: negative counts (edits=%d, weighted=%d)", ErrInvalidBatch, b.Edits, b.WeightedEdits)
	}
	if b.WeightedEdits < b.Edits {
		return fmt.Errorf("%w: weighted edits %d below edits %d", ErrInvalidBatch, b.WeightedEdits, b.Edits)
	}
	return nil
}

// Update folds a batch into the running totals, stamping it with the current time
func (e *EarlyOften) Update(b Batch) error {
	return e.UpdateAt(b, time.Now())
}

// UpdateAt folds a batch into the running totals and recomputes the score.
// A score over zero total edits is 0.
func (e *EarlyOften) UpdateAt(b Batch, now time.Time) error {
	if err := b.validate(); err != nil {
		return err
	}

	e.TotalEdits += b.Edits
	e.TotalWeightedEdits += b.WeightedEdits
	if e.TotalEdits == 0 {
		e.Score = 0
	} else {
		e.Score = float64(e.TotalWeightedEdits) / float64(e.TotalEdits)
	}
	e.LastUpdated = now
	return nil
}
