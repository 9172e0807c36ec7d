package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/inkpost/inkpost/server/internal/model"
	"github.com/inkpost/inkpost/server/internal/store"
	"github.com/inkpost/inkpost/server/internal/ws"
	"github.com/redis/go-redis/v9"
)

// ─────────────────────────────────────────────
// Notification Dispatcher
//
// Fans receipt and letter-arrival events out to Redis (for external
// consumers such as the email worker) and to the owner's connected
// WebSocket sessions. Everything here is best-effort: a failed publish
// is logged and forgotten, never propagated — a lost receipt must not
// roll back a committed ledger mutation.
// ─────────────────────────────────────────────

// Dispatcher pushes notifications to Redis and the WebSocket hub.
type Dispatcher struct {
	rdb   *redis.Client
	hub   *ws.Hub
	store *store.Store // async write-behind log; may be nil
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(rdb *redis.Client, hub *ws.Hub, st *store.Store) *Dispatcher {
	return &Dispatcher{rdb: rdb, hub: hub, store: st}
}

// ReceiptIssued dispatches a charge receipt to the user.
func (d *Dispatcher) ReceiptIssued(ctx context.Context, userID string, rcpt *model.Receipt) {
	d.dispatch(ctx, userID, model.MsgTypeReceipt, rcpt)
}

// LetterArrived announces a new incoming letter to its owner.
func (d *Dispatcher) LetterArrived(ctx context.Context, userID string, ev *model.LetterArrived) {
	d.dispatch(ctx, userID, model.MsgTypeLetterArrived, ev)
}

func (d *Dispatcher) dispatch(ctx context.Context, userID string, msgType model.MsgType, payload interface{}) {
	env := model.Envelope{Type: msgType, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("[notify] marshal %s error: %v", msgType, err)
		return
	}

	if d.rdb != nil {
		if err := d.rdb.Publish(ctx, model.ReceiptChannel, data).Err(); err != nil {
			log.Printf("[notify] redis publish %s error: %v", msgType, err)
		}
	}

	if d.hub != nil {
		d.hub.SendToUser(userID, data)
	}

	if d.store != nil {
		d.store.LogNotification(userID, string(msgType), string(data))
	}
}
