package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/movie-platform/services/comments/internal/store"
)

// commentEvent is the subset of the event envelope the reconciler needs:
// the reference fields of the comment each write touched.
type commentEvent struct {
	EventName  string `json:"event_name"`
	Properties struct {
		CommentID    string `json:"comment_id"`
		ParentID     string `json:"parent_id"`
		RootParentID string `json:"root_parent_id"`
	} `json:"properties"`
}

// StartReconciler consumes comment events and recomputes the reply counters
// of every touched parent and root from the reference fields. The hot path
// updates counters best-effort; this consumer is the repair loop that keeps
// drift bounded.
func StartReconciler(ctx context.Context, nc *nats.Conn, cs store.CommentStore, log *zap.Logger) {
	js, err := nc.JetStream()
	if err != nil {
		log.Warn("reconciler: jetstream unavailable", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe("comments.event.*", "comments_reconciler")
	if err != nil {
		log.Warn("reconciler: subscribe failed", zap.Error(err))
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(50, nats.MaxWait(2*time.Second))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				log.Warn("reconciler: fetch failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			// Dedupe ids across the batch; one recompute per counter row.
			ids := make(map[string]struct{})
			for _, m := range msgs {
				var ev commentEvent
				if err := json.Unmarshal(m.Data, &ev); err != nil {
					log.Warn("reconciler: invalid event payload", zap.Error(err))
					if err := m.Ack(); err != nil {
						log.Warn("reconciler: ack failed", zap.Error(err))
					}
					continue
				}
				if ev.Properties.ParentID != "" {
					ids[ev.Properties.ParentID] = struct{}{}
				}
				if ev.Properties.RootParentID != "" {
					ids[ev.Properties.RootParentID] = struct{}{}
				}
				if err := m.Ack(); err != nil {
					log.Warn("reconciler: ack failed", zap.Error(err))
				}
			}

			for id := range ids {
				err := cs.RecomputeReplyCount(ctx, id)
				switch {
				case err == nil:
				case errors.Is(err, store.ErrCommentNotFound):
					// The row itself was deleted since the event; nothing
					// left to reconcile.
				default:
					log.Warn("reconciler: recompute failed", zap.String("comment_id", id), zap.Error(err))
				}
			}
		}
	}()
}
