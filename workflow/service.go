package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/rajendraambati/leaf-trace-ai-sub002/config"
	"github.com/rajendraambati/leaf-trace-ai-sub002/utils"
)

// Service owns the live reconciliation state per business: a coalescing
// Refresher and the latest completed Result. This is the consumer-facing
// contract — records, stats, loading flag and a refetch hook — behind the
// REST surface.
type Service struct {
	debounce time.Duration

	mu      sync.Mutex
	tenants map[string]*tenantState
	closed  bool
}

type tenantState struct {
	businessId string
	refresher  *Refresher

	mu      sync.RWMutex
	latest  *Result
	loading bool
}

func NewService(debounce time.Duration) *Service {
	return &Service{
		debounce: debounce,
		tenants:  make(map[string]*tenantState),
	}
}

func (s *Service) tenant(businessId string) *tenantState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[businessId]; ok {
		return t
	}
	t := &tenantState{businessId: businessId}
	t.refresher = NewRefresher(t.runOnce, s.debounce)
	s.tenants[businessId] = t
	return t
}

func (t *tenantState) runOnce(ctx context.Context) error {
	t.mu.Lock()
	t.loading = true
	t.mu.Unlock()

	// Redis lock is a best-effort optimization against duplicate concurrent
	// runs across instances. Correctness must not depend on Redis: runs are
	// idempotent and the result buffer is replaced wholesale.
	if locker := config.GetRedisLock(); locker != nil {
		if lock, lockErr := locker.Obtain(ctx, "recon:lock:"+t.businessId, 30*time.Second, nil); lockErr == nil {
			defer lock.Release(context.Background())
		}
	}

	ctx = utils.SetBusinessIdInContext(ctx, t.businessId)
	result, err := RunReconciliation(ctx)

	t.mu.Lock()
	t.loading = false
	if err == nil && ctx.Err() == nil {
		// Full replacement only; a failed or superseded run leaves the
		// previous result on display.
		t.latest = result
	}
	t.mu.Unlock()
	return err
}

// NotifyChange is the change-notification entry point: any insert/update/
// delete on a traced collection lands here and schedules a full recompute.
func (s *Service) NotifyChange(businessId string) {
	s.tenant(businessId).refresher.Trigger()
}

// Refetch is the manual refresh hook exposed to the presentation layer.
func (s *Service) Refetch(businessId string) {
	s.tenant(businessId).refresher.Trigger()
}

// Latest returns the newest completed result and whether a run is in flight.
// Falls back to the Redis cache when this instance has not completed a run
// yet (fresh deploys, multi-instance).
func (s *Service) Latest(businessId string) (*Result, bool) {
	t := s.tenant(businessId)
	t.mu.RLock()
	latest, loading := t.latest, t.loading
	t.mu.RUnlock()
	if latest == nil {
		if cached, ok := CachedResult(businessId); ok {
			return cached, loading
		}
	}
	return latest, loading
}

// Close stops every tenant refresher and waits for in-flight runs.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	tenants := make([]*tenantState, 0, len(s.tenants))
	for _, t := range s.tenants {
		tenants = append(tenants, t)
	}
	s.mu.Unlock()

	for _, t := range tenants {
		t.refresher.Close()
	}
}
