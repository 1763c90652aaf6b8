// Package sched implements the EncoderStripeScheduler (spec §3.4, §4.5,
// §5): all encoder-thread synchronization lives in a single 32-bit atomic
// word, mutated only via compare-and-swap loops. The atomic-accounting
// idiom is grounded on am-sokolov-go-astc-encoder's astc/codec2d.go
// parallel block-encode loop. This package runs no worker pool and
// captures no errors itself: callers run the encoding jobs and report
// each completion through WorkerCompleteJob.
package sched

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Notifier is the subset of the §6 Subband contract the scheduler calls
// back into as stripes complete.
type Notifier interface {
	BlockRowGenerated(height int, isFinal bool)
	PropagateDependencies(pDelta int, closureReached bool)
	AllDone()
}

// Scheduler drives parallel encoding with 1-4 rotating stripes.
type Scheduler struct {
	word atomic.Uint32

	numStripes      int
	jobsPerStripe   int
	jobsPerQuantum  int
	linesPerQuantum int // 0 => a completed stripe goes straight to fully schedulable
	quantaPerStripe int

	pendingStripeJobs [maxStripes]atomic.Int32
	linesPushed       [maxStripes]int // push-thread-only, no synchronization needed

	mu       sync.Mutex // guards cond only
	cond     *sync.Cond
	notifier Notifier
	allDone  atomic.Bool

	// PassID correlates this scheduler's log lines / failure reports
	// across worker goroutines (spec §7 propagation), wired onto the
	// teacher's otherwise-unused google/uuid dependency.
	PassID string
}

// New builds a Scheduler for numStripes rotating stripes (1..4), each
// holding jobsPerStripe code-block encoding jobs dispatched jobsPerQuantum
// at a time. linesPerQuantum > 0 enables partial-stripe scheduling as
// lines are pushed; 0 means a stripe only becomes schedulable once fully
// pushed (spec §4.5).
func New(numStripes, jobsPerStripe, jobsPerQuantum, linesPerQuantum int, notifier Notifier) *Scheduler {
	if numStripes < 1 {
		numStripes = 1
	}
	if numStripes > maxStripes {
		numStripes = maxStripes
	}
	quanta := divCeil(jobsPerStripe, jobsPerQuantum)
	if quanta > (1 << quantumBits) {
		quanta = 1 << quantumBits
	}
	if quanta < 1 {
		quanta = 1
	}

	s := &Scheduler{
		numStripes:      numStripes,
		jobsPerStripe:   jobsPerStripe,
		jobsPerQuantum:  jobsPerQuantum,
		linesPerQuantum: linesPerQuantum,
		quantaPerStripe: quanta,
		notifier:        notifier,
		PassID:          uuid.NewString(),
	}
	s.cond = sync.NewCond(&s.mu)

	init := schedWord(0).withS(uint32(numStripes)).withMS(uint32(numStripes))
	s.word.Store(uint32(init))
	return s
}

func divCeil(a, b int) int {
	if b <= 0 {
		return 1
	}
	return (a + b - 1) / b
}

func (s *Scheduler) load() schedWord  { return schedWord(s.word.Load()) }
func (s *Scheduler) cas(old, new_ schedWord) bool {
	return s.word.CompareAndSwap(uint32(old), uint32(new_))
}

// casLoop runs f against successive loads of the word until the CAS of
// f's result succeeds, and returns the word it stored; a failed CAS just
// means re-read and recompute.
func (s *Scheduler) casLoop(f func(old schedWord) schedWord) schedWord {
	for {
		old := s.load()
		next := f(old)
		if s.cas(old, next) {
			return next
		}
	}
}

// Push parks the calling goroutine while S == 0 (spec §5: "push on a full
// encoder (S=0) — parks on a condition variable; resumed when any worker
// increments S"). Callers should call this before writing into a newly
// claimed stripe.
func (s *Scheduler) Push() {
	s.mu.Lock()
	for s.load().S() == 0 && !s.load().Tf() {
		s.casLoop(func(old schedWord) schedWord { return old.withW(true) })
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// PushLine records that one more line has been written into stripe idx.
// When linesPerQuantum > 0 this drives the "partial-quanta increment"
// transition (spec §4.5): once enough lines are in, earlier quanta become
// schedulable even though the stripe isn't fully pushed yet.
func (s *Scheduler) PushLine(stripe int) {
	s.linesPushed[stripe]++
	if s.linesPerQuantum <= 0 {
		return
	}
	stripeHeight := s.linesPerQuantum * s.quantaPerStripe
	wantQ := s.linesPushed[stripe] / s.linesPerQuantum
	if wantQ > s.quantaPerStripe {
		wantQ = s.quantaPerStripe
	}
	s.casLoop(func(old schedWord) schedWord {
		if old.Status(stripe) != StatusPartiallySchedulable {
			return old
		}
		next := old
		if uint32(wantQ) > old.Q() {
			next = next.withQ(uint32(wantQ))
		}
		if wantQ >= s.quantaPerStripe || s.linesPushed[stripe] >= stripeHeight {
			next = next.withStatus(stripe, StatusFullySchedulable)
		}
		return next
	})
}

// PushStripeComplete is called by the push thread once it has finished
// writing a stripe (either entirely, or — when linesPerQuantum > 0 —
// enough to release the stripe as partially schedulable). It consumes one
// unit of S (spec §4.5: "Push completes a stripe: atomically compute new
// S ... for the newly-released stripe").
func (s *Scheduler) PushStripeComplete(stripe int) {
	s.linesPushed[stripe] = 0
	s.pendingStripeJobs[stripe].Store(int32(s.jobsPerStripe))

	s.casLoop(func(old schedWord) schedWord {
		next := old.withS(old.S() - 1)
		if s.linesPerQuantum > 0 {
			next = next.withStatus(stripe, StatusPartiallySchedulable).withQ(0)
		} else {
			next = next.withStatus(stripe, StatusFullySchedulable)
		}
		return next
	})
}

// WorkerCompleteJob is called by a worker goroutine after finishing one
// code-block encoding job that belonged to stripe w (spec §4.5 "Worker
// completes all jobs in stripe w" is reached once every job in the
// stripe has reported completion via this method).
func (s *Scheduler) WorkerCompleteJob(w int) {
	remaining := s.pendingStripeJobs[w].Add(-1)
	if remaining > 0 {
		return
	}
	s.stripeFullyEncoded(w)
}

func (s *Scheduler) stripeFullyEncoded(w int) {
	var (
		rowsAdvanced int
		crossedMS    bool
		becameZero   bool
	)

	next := s.casLoop(func(old schedWord) schedWord {
		rowsAdvanced = 0
		nw := old
		if int(old.A()) == w {
			// w is the first active stripe: advance A past it and past
			// any successors already fully-encoded-but-not-accounted.
			a := int(old.A())
			nw = nw.withStatus(a, StatusUnused)
			a = (a + 1) % s.numStripes
			rowsAdvanced = 1
			for nw.Status(a) == StatusFullyEncoded {
				nw = nw.withStatus(a, StatusUnused)
				a = (a + 1) % s.numStripes
				rowsAdvanced++
			}
			nw = nw.withA(uint32(a))
			nw = nw.withS(nw.S() + uint32(rowsAdvanced))

			relP := nw.RelP()
			if relP != relPAllOnes {
				dec := uint32(rowsAdvanced) << quantumBits
				if dec > relP {
					relP = 0
				} else {
					relP -= dec
				}
				nw = nw.withRelP(relP)
			}
		} else {
			nw = nw.withStatus(w, StatusFullyEncoded)
		}

		oldMS, newS := old.MS(), nw.S()
		crossedMS = oldMS != 0 && newS >= oldMS
		becameZero = oldMS == 0
		if nw.Wf() && newS > 0 {
			nw = nw.withW(false)
		}
		return nw
	})

	if next.Wf() == false {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	}

	if rowsAdvanced > 0 && s.notifier != nil {
		s.notifier.BlockRowGenerated(rowsAdvanced, false)
	}
	if (crossedMS || becameZero) && s.notifier != nil {
		s.notifier.PropagateDependencies(-1, next.RelP() == relPAllOnes)
	}

	s.maybeAllDone(next)
}

// WillNeverBlock reports whether S has reached the Min-S target, meaning
// push is guaranteed never to park again (spec §4.5 "MS: S value at which
// push becomes non-blocking forever").
func (s *Scheduler) WillNeverBlock() bool {
	w := s.load()
	return w.MS() == 0 || w.S() >= w.MS()
}

// UpdateDependencies adds pDelta to rel_P (spec §4.5: "External
// update_dependencies(p_delta, closure) calls add p_delta to rel_P"). The
// all-ones rel_P value is a sentinel ("dependencies closed") and, once
// set, is never altered; closure requests that sentinel directly.
func (s *Scheduler) UpdateDependencies(pDelta int, closure bool) {
	s.casLoop(func(old schedWord) schedWord {
		if old.RelP() == relPAllOnes {
			return old
		}
		if closure {
			return old.withRelP(relPAllOnes)
		}
		v := int64(old.RelP()) + int64(pDelta)
		if v < 0 {
			v = 0
		}
		if v >= relPAllOnes {
			v = relPAllOnes - 1
		}
		return old.withRelP(uint32(v))
	})
}

// AdvanceBlockRowsNeeded pre-resources rows whole stripes at a time
// instead of one row at a time, amortizing the open_block/close_block
// critical section's cost (spec §6 advance_block_rows_needed; see
// SPEC_FULL.md §4 for the original_source-derived batching rationale).
func (s *Scheduler) AdvanceBlockRowsNeeded(rows, numQuantumBlocks int) {
	s.UpdateDependencies(rows<<quantumBits+numQuantumBlocks, false)
}

// IsSchedulable implements spec §4.5's scheduling decision for a job at
// (stripe, quantumPos) relative to the current word.
func (s *Scheduler) IsSchedulable(stripe, quantumPos int) bool {
	w := s.load()
	if w.Tf() {
		return false
	}
	status := w.Status(stripe)
	if status != StatusPartiallySchedulable && status != StatusFullySchedulable {
		return false
	}
	relRp, cp := splitRelP(w.RelP())
	rel := stripeDistance(int(w.A()), stripe, s.numStripes)
	positionReady := rel < int(relRp) || (rel == int(relRp) && quantumPos < int(cp))
	if !positionReady {
		return false
	}
	if status == StatusPartiallySchedulable && quantumPos >= int(w.Q()) {
		return false
	}
	return true
}

func stripeDistance(a, stripe, numStripes int) int {
	d := stripe - a
	if d < 0 {
		d += numStripes
	}
	return d
}

// WithRef runs fn while the R field ("count of threads currently touching
// the object") is held incremented, per spec §4.5's R-field discipline:
// any worker that intends to invoke a parent-queue callback after its
// last stripe-completion CAS must bracket that call with an R
// increment/decrement.
func (s *Scheduler) WithRef(fn func()) {
	s.casLoop(func(old schedWord) schedWord { return old.withR(old.R() + 1) })
	defer func() {
		next := s.casLoop(func(old schedWord) schedWord {
			r := old.R()
			if r > 0 {
				r--
			}
			return old.withR(r)
		})
		s.maybeAllDone(next)
	}()
	fn()
}

// RequestTermination is the only cancellation path (spec §5): it sets T,
// coerces all partial stripes to fully schedulable so no new jobs are
// added asynchronously, clamps rel_Rp to enable draining, and reconciles
// pending job counts so all_done fires exactly when the last in-flight
// job exits.
func (s *Scheduler) RequestTermination() {
	next := s.casLoop(func(old schedWord) schedWord {
		nw := old.withT(true)
		for i := 0; i < s.numStripes; i++ {
			if nw.Status(i) == StatusPartiallySchedulable {
				nw = nw.withStatus(i, StatusFullySchedulable)
			}
		}
		nw = nw.withRelP(relPAllOnes)
		return nw
	})
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	s.maybeAllDone(next)
}

func (s *Scheduler) maybeAllDone(w schedWord) {
	if s.allDone.Load() {
		return
	}
	noInFlight := w.R() == 0
	done := w.Tf() || w.MS() == 0
	if !(noInFlight && done) {
		return
	}
	allUnused := true
	for i := 0; i < s.numStripes; i++ {
		if w.Status(i) != StatusUnused {
			allUnused = false
			break
		}
	}
	if !w.Tf() && !allUnused {
		return
	}
	if s.allDone.CompareAndSwap(false, true) {
		if s.notifier != nil {
			s.notifier.AllDone()
		}
	}
}

// Snapshot exposes the current field values for invariant testing (spec
// §8.1).
type Snapshot struct {
	S, A, Q, MS, RelP, R uint32
	T, W                 bool
	Status               [maxStripes]StripeStatus
}

func (s *Scheduler) Snapshot() Snapshot {
	w := s.load()
	snap := Snapshot{S: w.S(), A: w.A(), Q: w.Q(), MS: w.MS(), RelP: w.RelP(), R: w.R(), T: w.Tf(), W: w.Wf()}
	for i := 0; i < s.numStripes; i++ {
		snap.Status[i] = w.Status(i)
	}
	return snap
}

func (s *Scheduler) NumStripes() int { return s.numStripes }
