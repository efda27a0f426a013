package services

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ecoecho-core/models"
	"ecoecho-core/store"

	"github.com/gofiber/fiber/v2"
)

const defaultStreamInterval = 2 * time.Second

// AchievementEvent is one unlock as sent on the stream.
type AchievementEvent struct {
	Achievement models.AchievementDefinition `json:"achievement"`
	Points      int                          `json:"points"`
	UnlockedAt  time.Time                    `json:"unlockedAt"`
	TotalPoints int                          `json:"totalPoints"`
}

// AchievementStreamService pushes new ledger entries to a client over SSE.
type AchievementStreamService struct {
	Repo     *store.Repository
	Interval time.Duration
}

func NewAchievementStreamService(repo *store.Repository) *AchievementStreamService {
	return &AchievementStreamService{Repo: repo, Interval: defaultStreamInterval}
}

// newEvents returns ledger entries after cursor, oldest first, and the new cursor.
func (s *AchievementStreamService) newEvents(ctx context.Context, ns store.Namespace, cursor time.Time) ([]AchievementEvent, time.Time, error) {
	ledger, err := s.Repo.Points(ctx, ns)
	if err != nil {
		return nil, cursor, err
	}
	var events []AchievementEvent
	next := cursor
	for _, e := range ledger.Earned {
		if !e.Timestamp.After(cursor) {
			continue
		}
		def, ok := models.FindAchievement(e.AchievementID)
		if !ok {
			continue
		}
		events = append(events, AchievementEvent{
			Achievement: def,
			Points:      e.Points,
			UnlockedAt:  e.Timestamp,
			TotalPoints: ledger.Total,
		})
		if e.Timestamp.After(next) {
			next = e.Timestamp
		}
	}
	return events, next, nil
}

// latestAward is the timestamp of the newest entry already in the ledger.
func (s *AchievementStreamService) latestAward(ctx context.Context, ns store.Namespace) time.Time {
	ledger, err := s.Repo.Points(ctx, ns)
	if err != nil {
		log.Printf("[STREAM] init error for %s: %v", ns, err)
		return time.Time{}
	}
	var latest time.Time
	for _, e := range ledger.Earned {
		if e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}
	return latest
}

// streamNamespace reads the session the SSE middleware attached.
func streamNamespace(c *fiber.Ctx) store.Namespace {
	session, _ := c.Locals(models.SessionLocalsKey).(models.Session)
	return store.ForUser(session.UserID)
}

// StreamAchievementsSSE streams unlocks for the caller's namespace.
func (s *AchievementStreamService) StreamAchievementsSSE(c *fiber.Ctx) error {
	ns := streamNamespace(c)
	interval := s.Interval
	if interval <= 0 {
		interval = defaultStreamInterval
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	reqCtx := c.Context()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx := context.Background()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		cursor := s.latestAward(ctx, ns)

		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case <-ticker.C:
				events, next, err := s.newEvents(ctx, ns, cursor)
				if err != nil {
					log.Printf("[STREAM] ledger read error for %s: %v", ns, err)
					continue
				}
				if len(events) == 0 {
					w.WriteString(":\n\n")
				}
				cursor = next
				for _, ev := range events {
					payload, _ := json.Marshal(ev)
					fmt.Fprintf(w, "event: achievement\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					return
				}

			case <-reqCtx.Done():
				return
			}
		}
	})

	return nil
}
