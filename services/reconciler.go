package services

import (
	"context"
	"log"
	"sync"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/observability"
	"ecoecho-core/store"

	lru "github.com/hashicorp/golang-lru"
)

const (
	SourceLocal     = "local"
	SourceServer    = "server"
	SourceProfile   = "profile"
	SourceLastKnown = "last_known"

	DefaultLastKnownCacheSize = 128
)

// StatsBackend is the server side of stats reconciliation.
type StatsBackend interface {
	FetchUserStats(ctx context.Context, token string) (*models.ServerUserStats, error)
	PushUserStats(ctx context.Context, token string, stats models.ServerUserStats) error
}

// PushQueue holds pushes that failed so they can be retried later.
type PushQueue interface {
	Enqueue(session models.Session, stats models.ServerUserStats)
}

// PushResult describes a best-effort push. Callers may ignore it.
type PushResult struct {
	Attempted bool
	Err       error
}

func (r PushResult) OK() bool {
	return r.Attempted && r.Err == nil
}

// Reconcile merges three views of the same scans. Every field is the maximum
// across the sources that report it.
func Reconcile(local, server, profile models.StatsSnapshot) models.ReconciledStats {
	sources := []models.StatsSnapshot{local, server, profile}

	var out models.ReconciledStats
	var weight, co2 float64
	for _, src := range sources {
		out.TotalItems = max(out.TotalItems, src.TotalItems)
		out.RecyclableItems = max(out.RecyclableItems, src.RecyclableItems)
		weight = max(weight, NormalizeWeight(src.TotalWeight, src.TotalItems))
		if src.TotalCarbonSaved > 0 {
			co2 = max(co2, src.TotalCarbonSaved)
		}
	}

	if weight == 0 {
		weight = EstimateWeightKg(out.TotalItems)
	}
	if co2 == 0 {
		co2 = EstimateCO2SavedKg(out.RecyclableItems, local.ScansByCategory)
	}

	out.TotalWeightKg = round1(weight)
	out.CO2SavedKg = round1(co2)
	out.TreesEquivalent = TreesEquivalent(out.CO2SavedKg)
	return out
}

// LocalSnapshot derives the on-device view from the local aggregate. Weight
// and carbon are estimated since scans do not carry them.
func LocalSnapshot(stats models.LocalAggregateStats) models.StatsSnapshot {
	return models.StatsSnapshot{
		Source:           SourceLocal,
		TotalItems:       stats.TotalItemsScanned,
		TotalWeight:      EstimateWeightKg(stats.TotalItemsScanned),
		TotalCarbonSaved: EstimateCO2SavedKg(stats.RecyclableItemsCount, stats.ScansByCategory),
		RecyclableItems:  stats.RecyclableItemsCount,
		ScansByCategory:  stats.ScansByCategory,
	}
}

// ReconcilerService runs throttled refreshes of the merged stats.
type ReconcilerService struct {
	Repo     *store.Repository
	Backend  StatsBackend
	Throttle RefreshThrottle
	Retry    PushQueue
	Locks    *NamespaceLocks
	Now      func() time.Time

	lastKnown *lru.Cache

	mu     sync.Mutex
	recent map[string]trackedSession
}

type trackedSession struct {
	session models.Session
	seen    time.Time
}

func NewReconcilerService(repo *store.Repository, backend StatsBackend, throttle RefreshThrottle, locks *NamespaceLocks, cacheSize int) (*ReconcilerService, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultLastKnownCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	if throttle == nil {
		throttle = NewMemoryThrottle(DefaultRefreshThrottle)
	}
	return &ReconcilerService{
		Repo:      repo,
		Backend:   backend,
		Throttle:  throttle,
		Locks:     locks,
		Now:       time.Now,
		lastKnown: cache,
		recent:    make(map[string]trackedSession),
	}, nil
}

// Refresh returns the merged stats for the session. Within the throttle
// window the server is not contacted: the last known merged state takes the
// server's place and is merged again with the current local aggregate and
// profile copy, so scans recorded since then still count. A throttled call
// writes nothing and pushes nothing. A full refresh always rewrites the
// profile stats copy and then pushes to the server when the session can
// reach it.
//
// The returned stats are valid even when err is non-nil; err only reports a
// failed profile write.
func (s *ReconcilerService) Refresh(ctx context.Context, session models.Session) (models.ReconciledStats, error) {
	s.track(session)
	return s.refresh(ctx, session)
}

// Resync is Refresh for background callers; it does not mark the session active.
func (s *ReconcilerService) Resync(ctx context.Context, session models.Session) (models.ReconciledStats, error) {
	return s.refresh(ctx, session)
}

func (s *ReconcilerService) refresh(ctx context.Context, session models.Session) (models.ReconciledStats, error) {
	ns := store.ForUser(session.UserID)

	allowed, err := s.Throttle.Allow(ctx, ns.CacheKey())
	if err != nil {
		log.Printf("[RECONCILE] throttle check failed for %s, refreshing anyway: %v", ns, err)
		allowed = true
	}
	if !allowed {
		return s.reconcileThrottled(ctx, ns), nil
	}

	var server models.StatsSnapshot
	if session.CanReachServer() && s.Backend != nil {
		remote, err := s.Backend.FetchUserStats(ctx, session.Token)
		if err != nil {
			log.Printf("[RECONCILE] server stats unavailable for %s: %v", ns, err)
		} else {
			server = models.SnapshotFromServer(SourceServer, remote)
		}
	}

	unlock := s.Locks.Lock(ns)
	merged := s.merge(ctx, ns, server)
	saveErr := s.Repo.SaveProfileStats(ctx, ns, merged.ToServerStats())
	unlock()

	s.lastKnown.Add(ns.CacheKey(), merged)
	observability.RecordReconcile("fresh", merged.ComputedAt)
	if saveErr != nil {
		log.Printf("[RECONCILE] failed to cache profile stats for %s: %v", ns, saveErr)
	}

	if session.CanReachServer() {
		s.Push(ctx, session, merged.ToServerStats())
	}
	return merged, saveErr
}

// Push sends stats to the server. Failures are logged and queued for retry.
func (s *ReconcilerService) Push(ctx context.Context, session models.Session, stats models.ServerUserStats) PushResult {
	if !session.CanReachServer() || s.Backend == nil {
		return PushResult{}
	}
	err := s.Backend.PushUserStats(ctx, session.Token, stats)
	observability.RecordPush(err == nil)
	if err != nil {
		log.Printf("[RECONCILE] ❌ push failed for %s: %v", session.UserID, err)
		if s.Retry != nil {
			s.Retry.Enqueue(session, stats)
		}
		return PushResult{Attempted: true, Err: err}
	}
	log.Printf("[RECONCILE] ✅ pushed stats for %s (%d items)", session.UserID, stats.TotalItems)
	return PushResult{Attempted: true}
}

// LastKnown returns the cached merged state of ns, if any.
func (s *ReconcilerService) LastKnown(ns store.Namespace) (models.ReconciledStats, bool) {
	v, ok := s.lastKnown.Get(ns.CacheKey())
	if !ok {
		return models.ReconciledStats{}, false
	}
	return v.(models.ReconciledStats), true
}

// Invalidate drops cached state and the throttle window of ns.
func (s *ReconcilerService) Invalidate(ctx context.Context, ns store.Namespace) {
	s.lastKnown.Remove(ns.CacheKey())
	if !ns.IsAnonymous() {
		s.mu.Lock()
		delete(s.recent, ns.UserID)
		s.mu.Unlock()
	}
	if err := s.Throttle.Reset(ctx, ns.CacheKey()); err != nil {
		log.Printf("[RECONCILE] failed to reset throttle for %s: %v", ns, err)
	}
}

// RecentSessions returns the sessions able to reach the server that
// refreshed after since.
func (s *ReconcilerService) RecentSessions(since time.Time) []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Session
	for id, t := range s.recent {
		if t.seen.Before(since) {
			delete(s.recent, id)
			continue
		}
		out = append(out, t.session)
	}
	return out
}

func (s *ReconcilerService) track(session models.Session) {
	if !session.CanReachServer() {
		return
	}
	s.mu.Lock()
	s.recent[session.UserID] = trackedSession{session: session, seen: s.Now()}
	s.mu.Unlock()
}

func (s *ReconcilerService) reconcileThrottled(ctx context.Context, ns store.Namespace) models.ReconciledStats {
	var server models.StatsSnapshot
	outcome := "throttled"
	if cached, ok := s.LastKnown(ns); ok {
		server = models.SnapshotFromServer(SourceLastKnown, &models.ServerUserStats{
			TotalItems:       cached.TotalItems,
			TotalWeight:      cached.TotalWeightKg,
			TotalCarbonSaved: cached.CO2SavedKg,
			RecyclableItems:  cached.RecyclableItems,
		})
		outcome = "cached"
	}

	unlock := s.Locks.Lock(ns)
	merged := s.merge(ctx, ns, server)
	unlock()

	s.lastKnown.Add(ns.CacheKey(), merged)
	observability.RecordReconcile(outcome, merged.ComputedAt)
	return merged
}

// merge must run with the namespace lock held.
func (s *ReconcilerService) merge(ctx context.Context, ns store.Namespace, server models.StatsSnapshot) models.ReconciledStats {
	local, err := s.Repo.Aggregate(ctx, ns)
	if err != nil {
		log.Printf("[RECONCILE] local stats unreadable for %s: %v", ns, err)
		local = models.NewLocalAggregateStats()
	}
	profile, err := s.Repo.ProfileStats(ctx, ns)
	if err != nil {
		log.Printf("[RECONCILE] profile stats unreadable for %s: %v", ns, err)
		profile = nil
	}

	merged := Reconcile(LocalSnapshot(local), server, models.SnapshotFromServer(SourceProfile, profile))
	merged.ComputedAt = s.Now().UTC()
	return merged
}
