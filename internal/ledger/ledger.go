package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/hackgods/appointment-assistant/internal/appointment"
)

const lockRetryDelay = 20 * time.Millisecond

// Record is one confirmed booking as stored in the local log file.
type Record struct {
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// Ledger is the local log sink: a single JSON list that is read whole,
// scanned for the slot, and rewritten whole on every booking. An OS file lock
// serialises writers across processes; mu does the same for goroutines, since
// a Flock handle is shared state within one process.
type Ledger struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

func New(path string) (*Ledger, error) {
	if path == "" {
		return nil, errors.New("ledger: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	return &Ledger{path: path, lock: flock.New(path + ".lock")}, nil
}

func (l *Ledger) Path() string {
	return l.path
}

// Confirm appends the appointment unless the slot is already recorded.
func (l *Ledger) Confirm(ctx context.Context, appt appointment.Appointment) (*appointment.Confirmation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	locked, err := l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appointment.NewSinkError(appointment.ErrLocalWriteFailed, fmt.Errorf("%w: %v", appointment.ErrSinkTimeout, err))
		}
		return nil, appointment.NewSinkError(appointment.ErrLocalWriteFailed, fmt.Errorf("lock ledger: %w", err))
	}
	if !locked {
		return nil, appointment.NewSinkError(appointment.ErrLocalWriteFailed, errors.New("ledger lock not acquired"))
	}
	defer l.lock.Unlock()

	records, err := l.read()
	if err != nil {
		return nil, appointment.NewSinkError(appointment.ErrLocalWriteFailed, err)
	}

	for _, r := range records {
		if r.Doctor == appt.DoctorName && r.Date == appt.Date && r.Time == appt.Time {
			return nil, appointment.ErrSlotAlreadyBooked
		}
	}

	records = append(records, Record{
		Patient: appt.PatientName,
		Doctor:  appt.DoctorName,
		Date:    appt.Date,
		Time:    appt.Time,
	})
	if err := l.write(records); err != nil {
		return nil, appointment.NewSinkError(appointment.ErrLocalWriteFailed, err)
	}

	return &appointment.Confirmation{
		Sink:    appointment.SinkLocal,
		Message: fmt.Sprintf("Appointment confirmed locally for %s with %s on %s at %s.", appt.PatientName, appt.DoctorName, appt.Date, appt.Time),
	}, nil
}

// Records returns the stored bookings in insertion order.
func (l *Ledger) Records() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock ledger: %w", err)
	}
	defer l.lock.Unlock()
	return l.read()
}

func (l *Ledger) read() ([]Record, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (l *Ledger) write(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
