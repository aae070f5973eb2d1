package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"tableflip.dev/jot/pkg/item"
)

const (
	redisEventChannel = "jot:events"
	redisMaxRetries   = 8
)

// NewRedis creates a Persistence backed by a redis server. Each item is a
// JSON string under item:<id>, and each collection is a set of ids under
// items:<owner>:<kind>.
func NewRedis(addr string, opts ...Option) (Persistence, error) {
	if addr == "" {
		return nil, errors.New("store: redis address required")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return newRedisPersistence(client, opts...), nil
}

func newRedisPersistence(client *redis.Client, opts ...Option) *redisPersistence {
	return &redisPersistence{
		client:  client,
		channel: redisEventChannel,
		opts:    buildOptions(opts),
	}
}

type redisPersistence struct {
	client  *redis.Client
	channel string
	opts    options

	// prefix namespaces every key, letting several stores share a server.
	prefix string
}

func (r *redisPersistence) itemKey(id string) string {
	return r.prefix + "item:" + id
}

func (r *redisPersistence) setKey(owner string, kind item.Kind) string {
	return fmt.Sprintf("%sitems:%s:%s", r.prefix, encodeOwner(owner), kind)
}

func decodeItem(data []byte) (item.Item, error) {
	var it item.Item
	if err := json.Unmarshal(data, &it); err != nil {
		return item.Item{}, fmt.Errorf("store: decode item: %w", err)
	}
	return it, nil
}

func (r *redisPersistence) List(ctx context.Context, owner string, kind item.Kind) ([]item.Item, error) {
	ids, err := r.client.SMembers(ctx, r.setKey(owner, kind)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []item.Item{}, nil
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.itemKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]item.Item, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		it, err := decodeItem(data)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	SortItems(out)
	return out, nil
}

func (r *redisPersistence) Get(ctx context.Context, kind item.Kind, id string) (item.Item, error) {
	data, err := r.client.Get(ctx, r.itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return item.Item{}, notFound(kind, id)
	}
	if err != nil {
		return item.Item{}, err
	}
	it, err := decodeItem(data)
	if err != nil {
		return item.Item{}, err
	}
	if it.Kind != kind {
		return item.Item{}, notFound(kind, id)
	}
	return it, nil
}

func (r *redisPersistence) Insert(ctx context.Context, it item.Item) (item.Item, error) {
	created, err := r.opts.created(it)
	if err != nil {
		return item.Item{}, err
	}
	data, err := json.Marshal(created)
	if err != nil {
		return item.Item{}, err
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.itemKey(created.ID), data, 0)
		pipe.SAdd(ctx, r.setKey(created.Owner, created.Kind), created.ID)
		return nil
	})
	if err != nil {
		return item.Item{}, err
	}
	r.publish(ctx, created.Owner, created.Kind)
	return created, nil
}

func (r *redisPersistence) Update(ctx context.Context, owner string, kind item.Kind, id string, patch item.Patch) (item.Item, error) {
	var next item.Item
	err := r.transact(ctx, func(tx *redis.Tx) error {
		prev, err := r.ownedTx(ctx, tx, owner, kind, id)
		if err != nil {
			return err
		}
		next = r.opts.updated(prev, patch)
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.itemKey(id), data, 0)
			return nil
		})
		return err
	}, r.itemKey(id))
	if err != nil {
		return item.Item{}, err
	}
	r.publish(ctx, owner, kind)
	return next, nil
}

func (r *redisPersistence) Delete(ctx context.Context, owner string, kind item.Kind, id string) (item.Item, error) {
	removed, err := r.BatchDelete(ctx, owner, kind, []string{id})
	if err != nil {
		return item.Item{}, err
	}
	if len(removed) == 0 {
		return item.Item{}, notFound(kind, id)
	}
	return removed[0], nil
}

func (r *redisPersistence) BatchDelete(ctx context.Context, owner string, kind item.Kind, ids []string) ([]item.Item, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.itemKey(id)
	}

	var removed []item.Item
	err := r.transact(ctx, func(tx *redis.Tx) error {
		removed = removed[:0]
		for _, id := range ids {
			prev, err := r.ownedTx(ctx, tx, owner, kind, id)
			if err != nil {
				return err
			}
			removed = append(removed, prev)
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, keys...)
			members := make([]interface{}, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			pipe.SRem(ctx, r.setKey(owner, kind), members...)
			return nil
		})
		return err
	}, keys...)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, owner, kind)
	return removed, nil
}

// transact runs fn under WATCH, retrying when another client touched the
// watched keys first.
func (r *redisPersistence) transact(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("store: transaction contention on %v", keys)
}

func (r *redisPersistence) ownedTx(ctx context.Context, tx *redis.Tx, owner string, kind item.Kind, id string) (item.Item, error) {
	data, err := tx.Get(ctx, r.itemKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return item.Item{}, notFound(kind, id)
	}
	if err != nil {
		return item.Item{}, err
	}
	it, err := decodeItem(data)
	if err != nil {
		return item.Item{}, err
	}
	if it.Kind != kind {
		return item.Item{}, notFound(kind, id)
	}
	if err := checkOwner(it, owner); err != nil {
		return item.Item{}, err
	}
	return it, nil
}

func (r *redisPersistence) publish(ctx context.Context, owner string, kind item.Kind) {
	data, err := json.Marshal(Event{Type: EventCollectionChanged, Owner: owner, Kind: kind})
	if err != nil {
		return
	}
	// Subscribers that miss a publish resync on their next event.
	_ = r.client.Publish(ctx, r.channel, data).Err()
}

// Watch subscribes to the store's change channel until ctx is cancelled.
func (r *redisPersistence) Watch(ctx context.Context) (<-chan Event, error) {
	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("store: subscribe: %w", err)
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					ev = Event{Type: EventCollectionsInvalidated}
				}
				select {
				case events <- ev:
				default:
				}
			}
		}
	}()
	return events, nil
}

func (r *redisPersistence) Close() error {
	return r.client.Close()
}
