package playsim

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/hoops/internal/domain/model"
)

type batchRequest struct {
	Events []model.ScoreEvent `json:"events"`
}

// playSession runs one full session for p and stores the final standing.
func (c *HTTPClient) playSession(ctx context.Context, p *Play) error {
	if err := c.do(ctx, http.MethodPost, "/sessions/start", p.PlayerID, nil, nil, StatusNoContent); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	started := time.Now()

	if p.Batch {
		for i := range p.Events {
			p.Events[i].EventTimeMillis = started.UnixMilli() + int64(i)
		}
		if err := c.do(ctx, http.MethodPost, "/sessions/end-with-scores", p.PlayerID, batchRequest{Events: p.Events}, &p.Standing, StatusOK); err != nil {
			return fmt.Errorf("end with scores: %w", err)
		}
		return nil
	}

	for i := range p.Events {
		p.Events[i].EventTimeMillis = time.Now().UnixMilli()
		if err := c.do(ctx, http.MethodPost, "/sessions/scores", p.PlayerID, p.Events[i], nil, StatusOK); err != nil {
			return fmt.Errorf("score %d: %w", i, err)
		}
	}
	if err := c.do(ctx, http.MethodPost, "/sessions/end", p.PlayerID, nil, &p.Standing, StatusOK); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return nil
}

// playSessions plays every session with at most config.Workers in flight.
// A failed session is recorded on its Play and does not stop the others.
func playSessions(ctx context.Context, config *Config, client *HTTPClient, plays []Play, stats *Stats) error {
	log.Printf("🏀 Playing %d sessions with %d workers...", len(plays), config.Workers)

	var completed, failed, events int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for i := range plays {
		p := &plays[i]
		g.Go(func() error {
			if err := client.playSession(gctx, p); err != nil {
				p.Err = err.Error()
				atomic.AddInt64(&failed, 1)
				if config.Verbose {
					log.Printf("⚠️  Session for %s failed: %v", p.PlayerID, err)
				}
				return nil
			}
			atomic.AddInt64(&completed, 1)
			atomic.AddInt64(&events, int64(len(p.Events)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled while playing: %w", err)
	}

	stats.SessionsCompleted = int(completed)
	stats.SessionsFailed = int(failed)
	stats.EventsSubmitted = int(events)
	log.Printf("✅ Sessions completed: %d, failed: %d", completed, failed)
	return nil
}
