package workers

import (
	"context"
	"log"
	"time"

	"ecoecho-core/services"
)

// activeWindow is how long a session counts as active after its last refresh.
const activeWindow = 30 * time.Minute

// StatsSyncWorker keeps the server's copy of active users' stats current
// between UI refreshes.
type StatsSyncWorker struct {
	reconciler *services.ReconcilerService
	interval   time.Duration
}

func NewStatsSyncWorker(reconciler *services.ReconcilerService, interval time.Duration) *StatsSyncWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StatsSyncWorker{reconciler: reconciler, interval: interval}
}

func (w *StatsSyncWorker) Start(ctx context.Context) {
	log.Printf("🔁 Starting Stats Sync Worker (every %s)…", w.interval)
	go w.run(ctx)
}

func (w *StatsSyncWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncActive(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Stats Sync Worker stopped")
			return
		}
	}
}

// syncActive refreshes every recently active session. The refresh throttle
// still applies, so a session the UI just refreshed is skipped.
func (w *StatsSyncWorker) syncActive(ctx context.Context) int {
	sessions := w.reconciler.RecentSessions(w.reconciler.Now().Add(-activeWindow))
	if len(sessions) == 0 {
		return 0
	}
	log.Printf("[SYNC] 📡 Refreshing stats for %d active session(s)", len(sessions))

	synced := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return synced
		}
		if _, err := w.reconciler.Resync(ctx, session); err != nil {
			log.Printf("[SYNC] ⚠️ Refresh for %s incomplete: %v", session.UserID, err)
			continue
		}
		synced++
	}
	log.Printf("[SYNC] ✅ Refreshed %d/%d session(s)", synced, len(sessions))
	return synced
}
