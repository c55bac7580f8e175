// Package memory is an in-process registry ledger with the contract's
// semantics: one record per identity, immutable registration time, and
// activity that can only be revoked. Transactions are included after a
// configurable delay, and tests can hold inclusion or inject failures.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"organchain/internal/ledger"
	"organchain/internal/models"
	"organchain/internal/wallet"
	"organchain/pkg/domain"
)

// Revert reasons, matching the deployed contract's messages.
const (
	ReasonAlreadyRegistered = "Donor already registered"
	ReasonNotActive         = "Donor is not active"
)

type Ledger struct {
	mu            sync.Mutex
	records       map[domain.Address]*models.LedgerRecord
	block         uint64
	lastTimestamp int64
	nonce         uint64

	now          func() time.Time
	confirmDelay time.Duration
	held         bool
	heldTxs      []*transaction

	submitErr  error
	confirmErr error
	readErr    error
	readGate   chan struct{}
}

type Option func(*Ledger)

// WithConfirmDelay sets how long after submission a transaction is included.
func WithConfirmDelay(d time.Duration) Option {
	return func(l *Ledger) {
		l.confirmDelay = d
	}
}

// WithClock replaces the block timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		records: make(map[domain.Address]*models.LedgerRecord),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bind implements ledger.Transport.
func (l *Ledger) Bind(id *wallet.Identity) (ledger.Contract, error) {
	return &session{ledger: l, id: id}, nil
}

// FailNextSubmit makes the next write fail before submission with err.
func (l *Ledger) FailNextSubmit(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submitErr = err
}

// FailNextConfirm makes the next included transaction report err from Wait
// without changing state.
func (l *Ledger) FailNextConfirm(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.confirmErr = err
}

// FailReads makes every read fail with err until called with nil.
func (l *Ledger) FailReads(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readErr = err
}

// GateReads blocks reads until the returned release func is called.
func (l *Ledger) GateReads() (release func()) {
	gate := make(chan struct{})
	l.mu.Lock()
	l.readGate = gate
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.readGate == gate {
				l.readGate = nil
			}
			l.mu.Unlock()
			close(gate)
		})
	}
}

// Hold defers inclusion of new transactions until Release.
func (l *Ledger) Hold() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = true
}

// Release includes every held transaction in submission order.
func (l *Ledger) Release() {
	l.mu.Lock()
	l.held = false
	txs := l.heldTxs
	l.heldTxs = nil
	l.mu.Unlock()

	for _, tx := range txs {
		l.include(tx)
	}
}

// Record returns a copy of the stored record for addr.
func (l *Ledger) Record(addr domain.Address) (*models.LedgerRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[addr]
	if !ok {
		return nil, false
	}
	return cloneRecord(rec), true
}

type session struct {
	ledger *Ledger
	id     *wallet.Identity
}

func (s *session) RegisterDonor(ctx context.Context, reg models.Registration) (ledger.Transaction, error) {
	payload, err := json.Marshal(struct {
		Fn  string
		Reg models.Registration
	}{"registerDonor", reg})
	if err != nil {
		return nil, err
	}
	reg.Organs = slices.Clone(reg.Organs)
	return s.ledger.submit(ctx, s.id, payload, func(l *Ledger, ts int64) error {
		if _, ok := l.records[s.id.Address]; ok {
			return &ledger.RevertError{Reason: ReasonAlreadyRegistered}
		}
		l.records[s.id.Address] = &models.LedgerRecord{
			Identity:       s.id.Address,
			FullName:       reg.FullName,
			Age:            reg.Age,
			BloodType:      reg.BloodType,
			Organs:         reg.Organs,
			MedicalHistory: reg.MedicalHistory,
			RegisteredAt:   ts,
			IsActive:       true,
		}
		return nil
	})
}

func (s *session) RevokeDonation(ctx context.Context) (ledger.Transaction, error) {
	return s.ledger.submit(ctx, s.id, []byte("revokeDonation"), func(l *Ledger, _ int64) error {
		rec, ok := l.records[s.id.Address]
		if !ok || !rec.IsActive {
			return &ledger.RevertError{Reason: ReasonNotActive}
		}
		rec.IsActive = false
		return nil
	})
}

func (s *session) GetDonorInfo(ctx context.Context, addr domain.Address) (*models.LedgerRecord, error) {
	if err := s.ledger.beforeRead(ctx); err != nil {
		return nil, err
	}
	rec, ok := s.ledger.Record(addr)
	if !ok {
		return nil, ledger.ErrNotRegistered
	}
	return rec, nil
}

func (s *session) IsDonor(ctx context.Context, addr domain.Address) (bool, error) {
	if err := s.ledger.beforeRead(ctx); err != nil {
		return false, err
	}
	_, ok := s.ledger.Record(addr)
	return ok, nil
}

func (l *Ledger) beforeRead(ctx context.Context) error {
	l.mu.Lock()
	gate := l.readGate
	err := l.readErr
	l.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

type mutation func(l *Ledger, timestamp int64) error

// submit signs the payload, simulates the call against current state so
// obvious reverts surface before anything is sent, then schedules inclusion.
func (l *Ledger) submit(ctx context.Context, id *wallet.Identity, payload []byte, apply mutation) (ledger.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	digest := sha256.Sum256(payload)
	if _, err := id.Signer.Sign(digest[:]); err != nil {
		return nil, err
	}

	l.mu.Lock()
	if err := l.submitErr; err != nil {
		l.submitErr = nil
		l.mu.Unlock()
		return nil, err
	}
	if err := l.simulateLocked(apply); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.nonce++
	idBytes := sha256.Sum256(append(digest[:], byte(l.nonce), byte(l.nonce>>8), byte(l.nonce>>16)))
	tx := &transaction{
		id:    "0x" + hex.EncodeToString(idBytes[:]),
		apply: apply,
		done:  make(chan struct{}),
	}
	if l.held {
		l.heldTxs = append(l.heldTxs, tx)
		l.mu.Unlock()
		return tx, nil
	}
	delay := l.confirmDelay
	l.mu.Unlock()

	time.AfterFunc(delay, func() { l.include(tx) })
	return tx, nil
}

// simulateLocked runs apply against a scratch copy of the record set.
func (l *Ledger) simulateLocked(apply mutation) error {
	scratch := &Ledger{records: make(map[domain.Address]*models.LedgerRecord, len(l.records))}
	for k, v := range l.records {
		scratch.records[k] = cloneRecord(v)
	}
	return apply(scratch, 0)
}

func (l *Ledger) include(tx *transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.block++
	tx.block = l.block
	if err := l.confirmErr; err != nil {
		l.confirmErr = nil
		tx.err = err
		close(tx.done)
		return
	}
	ts := l.now().Unix()
	if ts <= l.lastTimestamp {
		ts = l.lastTimestamp + 1
	}
	if err := tx.apply(l, ts); err != nil {
		tx.err = err
		close(tx.done)
		return
	}
	l.lastTimestamp = ts
	close(tx.done)
}

type transaction struct {
	id    string
	apply mutation
	done  chan struct{}
	block uint64
	err   error
}

func (t *transaction) ID() string {
	return t.id
}

func (t *transaction) Wait(ctx context.Context) (*ledger.Inclusion, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if t.err != nil {
		return nil, t.err
	}
	return &ledger.Inclusion{BlockNumber: t.block}, nil
}

func cloneRecord(r *models.LedgerRecord) *models.LedgerRecord {
	c := *r
	c.Organs = slices.Clone(r.Organs)
	return &c
}
