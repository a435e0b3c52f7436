package objectmodel

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/veloxdb/veloxdb/pkg/velox/changelist"
	"github.com/veloxdb/veloxdb/pkg/velox/deleteset"
	"github.com/veloxdb/veloxdb/pkg/velox/engine"
	"github.com/veloxdb/veloxdb/pkg/velox/idalloc"
	"github.com/veloxdb/veloxdb/pkg/velox/log"
	"github.com/veloxdb/veloxdb/pkg/velox/metrics"
	"github.com/veloxdb/veloxdb/pkg/velox/recordbuf"
	"github.com/veloxdb/veloxdb/pkg/velox/schema"
)

// classIDBits is how many low bits of an id are the per-class sequence
// number; the remaining high bits are the class id (spec.md §3 "a 64-bit
// ID encoding class id in its high bits and sequence in its low bits").
const classIDBits = 40
const sequenceMask = (uint64(1) << classIDBits) - 1

func makeID(classID uint32, seq uint64) uint64 {
	return (uint64(classID) << classIDBits) | (seq & sequenceMask)
}

func classIDOfID(id uint64) uint32 { return uint32(id >> classIDBits) }

// Session is the object model's entry point: it is both the transactional
// session of spec.md §4.C6 and the outbound ObjectModel facade of spec.md
// §6 (create_object, get_object, apply_changes, commit, ...). Go's single
// exported-type-per-concern idiom collapses the source's separate
// session/façade split into one type.
type Session struct {
	cfg    Config
	schema *schema.Schema
	txn    engine.Transaction

	ownerGoroutine uint64
	disposed       bool

	identity   map[uint64]*Wrapper
	changeList *changelist.List
	deletedSet *deleteset.DeletedSet
	deltaStore *deleteset.DeltaStore

	idAllocs map[uint32]*idalloc.Allocator

	stringPool []string

	logger zerolog.Logger
}

// New opens a session against txn for the given schema. txn's kind must
// match cfg.TransactionKind.
func New(sch *schema.Schema, txn engine.Transaction, cfg Config) *Session {
	cfg = cfg.withDefaults()
	s := &Session{
		cfg:            cfg,
		schema:         sch,
		txn:            txn,
		ownerGoroutine: goroutineID(),
		identity:       make(map[uint64]*Wrapper),
		changeList:     changelist.New(cfg.ChangeListInitialCapacity),
		deletedSet:     deleteset.New(),
		deltaStore:     deleteset.NewDeltaStore(),
		idAllocs:       make(map[uint32]*idalloc.Allocator),
		stringPool:     make([]string, 0, cfg.BufferStringPoolInitial),
		logger:         log.WithComponent("session"),
	}
	metrics.SessionsOpen.Inc()
	return s
}

func (s *Session) checkThreadAndDisposed() error {
	if s.disposed {
		return ErrObjectDisposed
	}
	if goroutineID() != s.ownerGoroutine {
		return ErrWrongThread
	}
	return nil
}

func (s *Session) checkAccess(w *Wrapper) error {
	if err := s.checkThreadAndDisposed(); err != nil {
		return err
	}
	if w.sess != s {
		return ErrCrossModelReference
	}
	if w.IsAbandoned() {
		return ErrAbandonedObjectAccess
	}
	if w.IsDeleted() {
		return ErrDeletedObjectAccess
	}
	return nil
}

func (s *Session) checkWritable(w *Wrapper) error {
	if err := s.checkAccess(w); err != nil {
		return err
	}
	if s.cfg.TransactionKind == engine.Read {
		return ErrReadTranWriteAttempt
	}
	return nil
}

func (s *Session) idAllocFor(classID uint32) *idalloc.Allocator {
	if a, ok := s.idAllocs[classID]; ok {
		return a
	}
	a := idalloc.New(func(size uint32) (uint64, error) {
		metrics.IDRangeReservations.WithLabelValues("foreground").Inc()
		first, err := s.txn.ReserveIDRange(classID, size)
		if err != nil {
			metrics.IDRangeReservationFailures.Inc()
		}
		return first, err
	}, idalloc.Config{RangeSize: s.cfg.IDRangeSize, InitialRequest: s.cfg.IDRangeRequest, RefillWaterMark: s.cfg.IDRefillWaterMark})
	s.idAllocs[classID] = a
	return a
}

// CreateObject creates a new instance of className in Inserted state.
func (s *Session) CreateObject(className string) (*Wrapper, error) {
	if err := s.checkThreadAndDisposed(); err != nil {
		return nil, err
	}
	if s.cfg.TransactionKind == engine.Read {
		return nil, ErrReadTranWriteAttempt
	}
	cd, ok := s.schema.Class(className)
	if !ok || cd.IsAbstract {
		return nil, ErrInvalidObjectType
	}
	seq, err := s.idAllocFor(cd.ClassID).Reserve(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIdExhausted, err)
	}
	id := makeID(cd.ClassID, seq)
	buf := cd.NewBuffer(id)
	w := newWrapper(s, cd, buf, FlagInserted)
	s.identity[id] = w
	s.changeList.Add(w)
	return w, nil
}

// GetObject resolves id to a wrapper, returning (nil, nil) if it does not
// exist or has been deleted this session.
func (s *Session) GetObject(id uint64) (*Wrapper, error) {
	if err := s.checkThreadAndDisposed(); err != nil {
		return nil, err
	}
	if w, ok := s.identity[id]; ok {
		if w.IsDeleted() {
			return nil, nil
		}
		return w, nil
	}
	if s.deletedSet.Contains(id) {
		return nil, nil
	}
	classID := classIDOfID(id)
	cd, ok := s.schema.ClassByID(classID)
	if !ok {
		return nil, nil
	}
	raw, ok, err := s.txn.GetObject(classID, id)
	if err != nil {
		s.disposeOnCriticalError()
		return nil, &CriticalEngineError{Cause: err}
	}
	if !ok {
		return nil, nil
	}
	w := newWrapper(s, cd, recordbuf.Buffer(raw), FlagRead)
	s.identity[id] = w
	return w, nil
}

// GetObjectStrict is GetObject but fails with ErrObjectNotFound instead of
// returning a nil wrapper.
func (s *Session) GetObjectStrict(id uint64) (*Wrapper, error) {
	w, err := s.GetObject(id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrObjectNotFound
	}
	return w, nil
}

// ObjectModified transitions a Read wrapper to Modified: it clones the
// buffer into a session-owned copy and appends the wrapper to the change
// list. Calling it on an already Modified or Inserted wrapper is a no-op.
func (s *Session) ObjectModified(w *Wrapper) error {
	if err := s.checkWritable(w); err != nil {
		return err
	}
	if w.flags.has(FlagModified) || w.flags.has(FlagInserted) {
		return nil
	}
	w.buf = w.buf.Clone()
	w.flags |= FlagModified
	s.changeList.Add(w)
	return nil
}

// referenceModified records a tracked reference's delta-store entries and
// invalidates any cached inverse-reference set on the old/new target
// (spec.md §4.C6 "reference mutation tracking").
func (s *Session) referenceModified(inverseID uint64, oldTarget, newTarget uint64, propertyID int) {
	if oldTarget != 0 {
		s.deltaStore.Add(oldTarget, inverseID, propertyID, false)
		s.invalidateInverseSet(oldTarget, propertyID)
	}
	if newTarget != 0 {
		s.deltaStore.Add(newTarget, inverseID, propertyID, true)
		s.invalidateInverseSet(newTarget, propertyID)
	}
}

func (s *Session) invalidateInverseSet(targetID uint64, propertyID int) {
	w, ok := s.identity[targetID]
	if !ok || w.inverseSets == nil {
		return
	}
	if set, ok := w.inverseSets[propertyID]; ok {
		set.Invalidate()
	}
}

func (s *Session) abandonObject(w *Wrapper) error {
	if err := s.checkAccess(w); err != nil {
		return err
	}
	w.flags |= FlagAbandoned
	delete(s.identity, w.id)
	return nil
}

func (s *Session) disposeOnCriticalError() {
	if !s.disposed {
		_ = s.disposeInternal("dispose")
	}
}

// TransactionKind returns the kind this session was opened with.
func (s *Session) TransactionKind() engine.TransactionKind { return s.cfg.TransactionKind }

// Schema returns the session's schema.
func (s *Session) Schema() *schema.Schema { return s.schema }
