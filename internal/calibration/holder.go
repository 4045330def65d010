package calibration

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/phin-cmd/Crane-Intelligence-sub002/internal/model"
)

// LoadFunc supplies the observation set for a reload. The refdata package
// provides implementations for each source kind.
type LoadFunc func(ctx context.Context) ([]model.RateObservation, error)

// Holder owns the process-wide calibration snapshot. Reads are lock-free;
// reloads serialize on a mutex, build the replacement model off-line, and
// swap the pointer once. A failed reload leaves the previous snapshot
// serving.
type Holder struct {
	mu      sync.Mutex
	current atomic.Pointer[Model]
}

// NewHolder creates an empty Holder. Snapshot returns nil until the first
// successful Reload or Install.
func NewHolder() *Holder {
	return &Holder{}
}

// Snapshot returns the current model, or nil when no calibration has
// succeeded yet. Callers keep the returned snapshot for the whole request;
// a concurrent reload never mutates it.
func (h *Holder) Snapshot() *Model {
	return h.current.Load()
}

// Install swaps in an already-built model. Used at startup when the caller
// builds the model itself.
func (h *Holder) Install(m *Model) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current.Store(m)
}

// Reload loads observations, builds a new model, and swaps it in. The
// previous snapshot keeps serving if the load or the build fails, and
// in-flight queries keep whatever snapshot they already hold.
func (h *Holder) Reload(ctx context.Context, load LoadFunc) (*Model, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()

	observations, err := load(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "calibration: reload load")
	}

	m, err := Build(observations)
	if err != nil {
		return nil, eris.Wrap(err, "calibration: reload build")
	}
	m.BuildDuration = time.Since(start)

	prev := h.current.Swap(m)

	fields := []zap.Field{
		zap.String("snapshot_id", m.SnapshotID),
		zap.Int("observations", m.ObservationCount),
		zap.Duration("elapsed", m.BuildDuration),
	}
	if prev != nil {
		fields = append(fields, zap.String("replaced_snapshot_id", prev.SnapshotID))
	}
	zap.L().Info("calibration: snapshot swapped", fields...)

	return m, nil
}
