package snapshot

import (
	"context"
	"fmt"
	"sync"
)

// Settings configure a Pool. Size zero disables prewarming: every checkout
// provisions a fresh, non-recyclable snapshot.
type Settings struct {
	Size        int
	Template    string
	Provisioner Provisioner
}

// Lease is a checked-out snapshot. Recyclable leases may return to the pool;
// fresh snapshots from a zero-size pool never do.
type Lease struct {
	ID         string
	Recyclable bool
}

// Metrics is a point-in-time view of the pool.
type Metrics struct {
	Warm   int
	Target int
}

// Pool keeps a queue of prewarmed snapshot ids. Provisioning happens outside
// the lock so a slow hook never blocks concurrent checkouts.
type Pool struct {
	settings Settings

	mu        sync.Mutex
	available []string
}

func NewPool(settings Settings) *Pool {
	if settings.Provisioner == nil {
		settings.Provisioner = syntheticProvisioner{}
	}
	return &Pool{settings: settings}
}

// EnsureWarmCapacity tops the queue up to the target size. It is idempotent:
// a second call against a full pool provisions nothing.
func (p *Pool) EnsureWarmCapacity(ctx context.Context) error {
	if p.settings.Size == 0 {
		return nil
	}

	for {
		p.mu.Lock()
		if len(p.available) >= p.settings.Size {
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		id, err := p.provision(ctx)
		if err != nil {
			return fmt.Errorf("warm snapshot pool: %w", err)
		}

		p.mu.Lock()
		p.available = append(p.available, id)
		p.mu.Unlock()
	}
}

// Checkout hands out a warm snapshot, provisioning on demand when the queue
// is empty.
func (p *Pool) Checkout(ctx context.Context) (Lease, error) {
	if p.settings.Size == 0 {
		id, err := p.provision(ctx)
		if err != nil {
			return Lease{}, err
		}
		return Lease{ID: id, Recyclable: false}, nil
	}

	p.mu.Lock()
	if len(p.available) > 0 {
		id := p.available[0]
		p.available = p.available[1:]
		p.mu.Unlock()
		return Lease{ID: id, Recyclable: true}, nil
	}
	p.mu.Unlock()

	id, err := p.provision(ctx)
	if err != nil {
		return Lease{}, err
	}
	return Lease{ID: id, Recyclable: true}, nil
}

// Recycle returns a lease to the queue unless the pool is already at target.
func (p *Pool) Recycle(lease Lease) {
	if !lease.Recyclable {
		return
	}

	p.mu.Lock()
	if len(p.available) < p.settings.Size {
		p.available = append(p.available, lease.ID)
	}
	p.mu.Unlock()
}

// Discard drops a lease after a failed attempt. The snapshot id is never
// reused.
func (p *Pool) Discard(Lease) {}

func (p *Pool) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Metrics{Warm: len(p.available), Target: p.settings.Size}
}

func (p *Pool) provision(ctx context.Context) (string, error) {
	return p.settings.Provisioner.Provision(ctx, p.settings.Template)
}
