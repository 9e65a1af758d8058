package calls

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker keeps in-flight call state in Redis. Keys:
//
//	ac:id:{callID}  -> ActiveCall JSON
//	ac:sid:{sid}    -> callID
//	ac:user:{uid}   -> set of callIDs
//
// Entries carry a TTL backstop: if a terminal webhook never arrives,
// the state ages out instead of lingering. The tracker is soft state —
// billing and records never depend on it being present.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
}

const trackerTTL = 4 * time.Hour

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb, ttl: trackerTTL}
}

func idKey(id string) string    { return "ac:id:" + id }
func sidKey(sid string) string  { return "ac:sid:" + sid }
func userKey(uid string) string { return "ac:user:" + uid }

func (t *Tracker) Create(ctx context.Context, c ActiveCall) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := t.rdb.TxPipeline()
	pipe.Set(ctx, idKey(c.ID), raw, t.ttl)
	if c.SID != "" {
		pipe.Set(ctx, sidKey(c.SID), c.ID, t.ttl)
	}
	pipe.SAdd(ctx, userKey(c.UserID), c.ID)
	pipe.Expire(ctx, userKey(c.UserID), t.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (t *Tracker) FindByID(ctx context.Context, id string) (ActiveCall, bool, error) {
	raw, err := t.rdb.Get(ctx, idKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ActiveCall{}, false, nil
		}
		return ActiveCall{}, false, err
	}
	var c ActiveCall
	if err := json.Unmarshal(raw, &c); err != nil {
		return ActiveCall{}, false, err
	}
	return c, true, nil
}

func (t *Tracker) FindBySID(ctx context.Context, sid string) (ActiveCall, bool, error) {
	id, err := t.rdb.Get(ctx, sidKey(sid)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ActiveCall{}, false, nil
		}
		return ActiveCall{}, false, err
	}
	return t.FindByID(ctx, id)
}

// AttachSID binds the provider's call identifier to an existing entry
// and optionally advances its status. Used when the first webhook for
// an app-initiated call arrives.
func (t *Tracker) AttachSID(ctx context.Context, id, sid, status string) error {
	c, ok, err := t.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.SID = sid
	if status != "" {
		c.Status = status
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	pipe := t.rdb.TxPipeline()
	pipe.Set(ctx, idKey(id), raw, t.ttl)
	pipe.Set(ctx, sidKey(sid), id, t.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (t *Tracker) UpdateStatus(ctx context.Context, id, status string) error {
	c, ok, err := t.FindByID(ctx, id)
	if err != nil || !ok {
		return err
	}
	c.Status = status
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return t.rdb.Set(ctx, idKey(id), raw, t.ttl).Err()
}

func (t *Tracker) Delete(ctx context.Context, c ActiveCall) error {
	pipe := t.rdb.TxPipeline()
	pipe.Del(ctx, idKey(c.ID))
	if c.SID != "" {
		pipe.Del(ctx, sidKey(c.SID))
	}
	pipe.SRem(ctx, userKey(c.UserID), c.ID)
	_, err := pipe.Exec(ctx)
	return err
}

// ListByUser returns the user's current in-flight calls. Stale set
// members whose entries have aged out are pruned on read.
func (t *Tracker) ListByUser(ctx context.Context, userID string) ([]ActiveCall, error) {
	ids, err := t.rdb.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out []ActiveCall
	for _, id := range ids {
		c, ok, err := t.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			t.rdb.SRem(ctx, userKey(userID), id)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
