package dataprocessing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"time"

	"salespulse/pkg/contracts/domain"
)

// Snapshot is the immutable set of validated records produced once per run.
// It is safe for concurrent reads; nothing exposes its backing slice.
type Snapshot struct {
	records     []domain.OrderRecord
	fingerprint string
	minDate     time.Time
	maxDate     time.Time
}

// NewSnapshot copies records into a new snapshot.
func NewSnapshot(records []domain.OrderRecord) *Snapshot {
	own := make([]domain.OrderRecord, len(records))
	copy(own, records)

	s := &Snapshot{records: own}
	for i, r := range own {
		if i == 0 || r.OrderDate.Before(s.minDate) {
			s.minDate = r.OrderDate
		}
		if i == 0 || r.OrderDate.After(s.maxDate) {
			s.maxDate = r.OrderDate
		}
	}
	s.fingerprint = fingerprintRecords(own)
	return s
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// At returns the i-th record by value.
func (s *Snapshot) At(i int) domain.OrderRecord {
	return s.records[i]
}

// Each calls fn for every record in order until fn returns false.
func (s *Snapshot) Each(fn func(i int, r domain.OrderRecord) bool) {
	for i, r := range s.records {
		if !fn(i, r) {
			return
		}
	}
}

// Records returns a copy of the records.
func (s *Snapshot) Records() []domain.OrderRecord {
	out := make([]domain.OrderRecord, len(s.records))
	copy(out, s.records)
	return out
}

// DateRange returns the minimum and maximum order dates. Both are zero for an
// empty snapshot.
func (s *Snapshot) DateRange() (time.Time, time.Time) {
	return s.minDate, s.maxDate
}

// Fingerprint is a content hash of the records in order.
func (s *Snapshot) Fingerprint() string {
	return s.fingerprint
}

// Totals sums the numeric fields across the snapshot.
func (s *Snapshot) Totals() (sale, profit float64, quantity int64) {
	for _, r := range s.records {
		sale += r.Sale
		profit += r.Profit
		quantity += r.Quantity
	}
	return sale, profit, quantity
}

func fingerprintRecords(records []domain.OrderRecord) string {
	w := recordHasher{h: sha256.New()}
	for _, r := range records {
		w.record(r)
	}
	return hex.EncodeToString(w.h.Sum(nil))
}

type recordHasher struct {
	h   hash.Hash
	buf [8]byte
}

func (w *recordHasher) u64(v uint64) {
	binary.BigEndian.PutUint64(w.buf[:], v)
	w.h.Write(w.buf[:])
}

func (w *recordHasher) str(s string) {
	w.u64(uint64(len(s)))
	w.h.Write([]byte(s))
}

// record encodes every field of r. RowIndex is included because profiles
// report outliers by source row.
func (w *recordHasher) record(r domain.OrderRecord) {
	w.u64(uint64(r.RowIndex))
	for _, f := range domain.Schema {
		if f.Kind == domain.KindString {
			w.str(r.StringField(f.Name))
		}
	}
	w.u64(uint64(r.OrderDate.Unix()))
	w.u64(uint64(r.ShipDate.Unix()))
	w.u64(math.Float64bits(r.Sale))
	w.u64(math.Float64bits(r.Discount))
	w.u64(uint64(r.Quantity))
	w.u64(math.Float64bits(r.Profit))
}
