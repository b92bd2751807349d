// Package payment models the payment channel the mint consumes: the exact
// price is kept, any excess is returned to the payer, and a failed return
// aborts the whole mint.
package payment

import (
	"context"
	"log"
	"sync"
)

// Channel returns excess payment to the original payer.
type Channel interface {
	Refund(ctx context.Context, payer string, amount uint64) error
}

// Recorder is an in-process channel that accounts refunds in memory. It
// stands in for a real settlement integration and gives the read surface
// something to audit against.
type Recorder struct {
	mu       sync.Mutex
	refunded map[string]uint64
}

// NewRecorder creates an empty refund recorder.
func NewRecorder() *Recorder {
	return &Recorder{refunded: make(map[string]uint64)}
}

// Refund credits the payer with the excess amount.
func (r *Recorder) Refund(_ context.Context, payer string, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunded[payer] += amount
	log.Printf("[Payment] Refunded %d to %s", amount, payer)
	return nil
}

// Refunded returns the total amount returned to a payer.
func (r *Recorder) Refunded(payer string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refunded[payer]
}

var _ Channel = (*Recorder)(nil)
