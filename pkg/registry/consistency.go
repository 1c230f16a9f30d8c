package registry

import "context"

// SyncStatus is the outcome of a consistency check.
type SyncStatus int

const (
	InSync SyncStatus = iota
	// DurableAhead means the durable tier holds more records than memory;
	// everything in memory is assumed persisted.
	DurableAhead
	// DurableBehind means memory holds records the durable tier lacks.
	DurableBehind
)

func (s SyncStatus) String() string {
	switch s {
	case DurableAhead:
		return "durable-ahead"
	case DurableBehind:
		return "durable-behind"
	default:
		return "in-sync"
	}
}

// Report is the result of ConsistencyCheck.
type Report struct {
	Memory    int        `json:"memory" yaml:"memory"`
	Durable   int        `json:"durable" yaml:"durable"`
	Connected bool       `json:"connected" yaml:"connected"`
	Status    SyncStatus `json:"-" yaml:"-"`
	StatusStr string     `json:"status" yaml:"status"`
}

// ConsistencyCheck compares record counts between the tiers. It only reads;
// it never reconciles. A degraded tier counts as zero durable records.
func (r *Registry) ConsistencyCheck(ctx context.Context) (Report, error) {
	rep := Report{
		Memory:    r.mem.Len(),
		Connected: r.store.Connected(),
	}
	n, err := r.DurableCount(ctx)
	if err != nil {
		return Report{}, err
	}
	rep.Durable = n
	switch {
	case rep.Durable > rep.Memory:
		rep.Status = DurableAhead
	case rep.Durable < rep.Memory:
		rep.Status = DurableBehind
	default:
		rep.Status = InSync
	}
	rep.StatusStr = rep.Status.String()
	r.metrics.setDurableCount(rep.Durable)
	return rep, nil
}
