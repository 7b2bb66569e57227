package server

import (
	"context"
	"log"
	"time"

	hubservices "github.com/openmutual/hub/modules/hub/services"
)

// runReservationPurger drops reservations whose TTL expired without a
// settle call. Each sweep is logged so abandoned contexts are visible.
func runReservationPurger(ctx context.Context, svc *hubservices.HubService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredReservations(ctx)
			if err != nil {
				log.Printf("hub: reservation purge failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("hub: purged %d expired reservations", n)
			}
		}
	}
}
