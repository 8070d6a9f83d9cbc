package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// DefaultBatchSize is the number of queued statements that triggers a flush.
const DefaultBatchSize = 3000

// Statement is one parameterized SQL statement waiting in a StatementQueue.
type Statement struct {
	SQL  string
	Args []any
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatementQueue buffers single-row writes and applies them together.
// The queue flushes itself when it reaches capacity; callers must Flush once
// more when they are done queueing. Not safe for concurrent use.
type StatementQueue struct {
	runner   txRunner
	capacity int
	pending  []Statement
	queued   int64
	flushes  int
	onFlush  func(size int)
}

// NewStatementQueue builds a queue that flushes through runner. A capacity
// <= 0 falls back to DefaultBatchSize.
func NewStatementQueue(runner txRunner, capacity int) (*StatementQueue, error) {
	if runner == nil {
		return nil, errors.New("statement queue requires a transaction runner")
	}
	if capacity <= 0 {
		capacity = DefaultBatchSize
	}
	return &StatementQueue{
		runner:   runner,
		capacity: capacity,
		pending:  make([]Statement, 0, capacity),
	}, nil
}

// OnFlush registers a callback invoked after every successful flush.
func (q *StatementQueue) OnFlush(fn func(size int)) {
	q.onFlush = fn
}

// Add queues a statement, flushing first-in-first-out when capacity is reached.
func (q *StatementQueue) Add(ctx context.Context, sql string, args ...any) error {
	if sql == "" {
		return errors.New("empty statement")
	}
	q.pending = append(q.pending, Statement{SQL: sql, Args: args})
	q.queued++
	if len(q.pending) >= q.capacity {
		return q.Flush(ctx)
	}
	return nil
}

// Flush applies every pending statement in a single transaction and clears
// the queue. An empty queue is a no-op.
func (q *StatementQueue) Flush(ctx context.Context) error {
	if len(q.pending) == 0 {
		return nil
	}
	size := len(q.pending)
	err := q.runner.WithTx(ctx, func(tx *gorm.DB) error {
		for i, stmt := range q.pending {
			if err := tx.Exec(stmt.SQL, stmt.Args...).Error; err != nil {
				return fmt.Errorf("statement %d of %d: %w", i+1, size, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("flush %d statements: %w", size, err)
	}
	q.pending = q.pending[:0]
	q.flushes++
	if q.onFlush != nil {
		q.onFlush(size)
	}
	return nil
}

// Len returns the number of statements waiting for the next flush.
func (q *StatementQueue) Len() int {
	return len(q.pending)
}

// Capacity returns the flush threshold.
func (q *StatementQueue) Capacity() int {
	return q.capacity
}

// Flushes returns the number of successful flushes so far.
func (q *StatementQueue) Flushes() int {
	return q.flushes
}

// Queued returns the total number of statements ever queued.
func (q *StatementQueue) Queued() int64 {
	return q.queued
}
