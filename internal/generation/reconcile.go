package generation

import (
	"log"
	"time"
)

// Reconciler requeues variants left in generating by a crashed or killed
// worker. The status field is the only claim there is, so anything stuck
// past the threshold would otherwise never reach a terminal state.
type Reconciler struct {
	store      Store
	staleAfter time.Duration
}

func NewReconciler(store Store, staleAfter time.Duration) *Reconciler {
	return &Reconciler{store: store, staleAfter: staleAfter}
}

// Sweep moves stale generating variants back to pending so a later trigger
// picks them up again.
func (r *Reconciler) Sweep() (int64, error) {
	moved, err := r.store.RequeueStaleVariants(r.staleAfter)
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		log.Printf("reconciler requeued %d stale variants", moved)
	}
	return moved, nil
}
