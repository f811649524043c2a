package cron

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zenithlearn/zenith-back/internal/auth"
	"github.com/zenithlearn/zenith-back/internal/db"
)

// streakGrace mirrors the window the progress handler uses when advancing a
// streak: a student idle longer than this loses it.
const streakGrace = 48 * time.Hour

func StartJobs(store db.Store, svc *auth.Service) {
	c := cron.New()

	c.AddFunc("@daily", func() {
		log.Println("Running session cleanup job...")
		n := svc.PruneExpiredSessions()
		log.Printf("✅ Pruned %d expired sessions\n", n)
	})

	c.AddFunc("@daily", func() {
		log.Println("Running streak maintenance job...")

		cutoff := time.Now().Add(-streakGrace)
		n, err := store.ResetLapsedStreaks(context.Background(), cutoff)
		if err != nil {
			log.Println("❌ Failed to reset lapsed streaks:", err)
			return
		}

		log.Printf("✅ Reset %d lapsed streaks\n", n)
	})

	c.Start()
}
