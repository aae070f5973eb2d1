package store

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/peterbourgon/diskv/v3"
	"go.uber.org/zap"

	"tableflip.dev/jot/pkg/item"
)

const keySeparator = ":"

// NewDiskv creates a Persistence backed by diskv rooted at basePath. Items are
// laid out as <basePath>/<owner>/<kind>/<id>.
func NewDiskv(basePath string, opts ...Option) (Persistence, error) {
	if basePath == "" {
		return nil, errors.New("store: base path required")
	}
	return &persistence{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      1024 * 1024, // 1MB
		}),
		basePath: basePath,
		opts:     buildOptions(opts),
	}, nil
}

type persistence struct {
	d        *diskv.Diskv
	basePath string
	opts     options

	// mu serialises read-modify-write cycles so ownership checks and
	// timestamps are consistent with what ends up on disk.
	mu sync.Mutex
}

func (p *persistence) read(key string) (item.Item, error) {
	val, err := p.d.Read(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return item.Item{}, item.ErrNotFound
		}
		return item.Item{}, err
	}
	var it item.Item
	if err := json.Unmarshal(val, &it); err != nil {
		return item.Item{}, fmt.Errorf("store: decode %s: %w", key, err)
	}
	pk := keyToPathTransform(key)
	it.ID = pk.FileName
	return it, nil
}

func (p *persistence) write(it item.Item) error {
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	return p.d.Write(toKey(it.Owner, it.Kind, it.ID), data)
}

func (p *persistence) List(ctx context.Context, owner string, kind item.Kind) ([]item.Item, error) {
	prefix := toKey(owner, kind, "")
	all := make([]item.Item, 0)
	for key := range p.d.KeysPrefix(prefix, ctx.Done()) {
		it, err := p.read(key)
		if err != nil {
			if errors.Is(err, item.ErrNotFound) {
				continue
			}
			return nil, err
		}
		all = append(all, it)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	SortItems(all)
	return all, nil
}

func (p *persistence) Get(ctx context.Context, kind item.Kind, id string) (item.Item, error) {
	key, ok := p.locate(ctx, kind, id)
	if !ok {
		return item.Item{}, notFound(kind, id)
	}
	it, err := p.read(key)
	if errors.Is(err, item.ErrNotFound) {
		return item.Item{}, notFound(kind, id)
	}
	return it, err
}

func (p *persistence) Insert(_ context.Context, it item.Item) (item.Item, error) {
	created, err := p.opts.created(it)
	if err != nil {
		return item.Item{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.write(created); err != nil {
		return item.Item{}, err
	}
	return created, nil
}

func (p *persistence) Update(ctx context.Context, owner string, kind item.Kind, id string, patch item.Patch) (item.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.owned(ctx, owner, kind, id)
	if err != nil {
		return item.Item{}, err
	}
	next := p.opts.updated(prev, patch)
	if err := p.write(next); err != nil {
		return item.Item{}, err
	}
	return next, nil
}

func (p *persistence) Delete(ctx context.Context, owner string, kind item.Kind, id string) (item.Item, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev, err := p.owned(ctx, owner, kind, id)
	if err != nil {
		return item.Item{}, err
	}
	if err := p.d.Erase(toKey(owner, kind, id)); err != nil {
		return item.Item{}, err
	}
	return prev, nil
}

func (p *persistence) BatchDelete(ctx context.Context, owner string, kind item.Kind, ids []string) ([]item.Item, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Verify the whole batch before touching anything.
	removed := make([]item.Item, 0, len(ids))
	for _, id := range ids {
		prev, err := p.owned(ctx, owner, kind, id)
		if err != nil {
			return nil, err
		}
		removed = append(removed, prev)
	}

	for i, it := range removed {
		if err := p.d.Erase(toKey(owner, kind, it.ID)); err != nil {
			p.restore(removed[:i])
			return nil, fmt.Errorf("store: batch delete %s: %w", it.ID, err)
		}
	}
	return removed, nil
}

// restore rewrites documents erased by a failed batch.
func (p *persistence) restore(items []item.Item) {
	for _, it := range items {
		if err := p.write(it); err != nil {
			p.opts.log.Error("restore after failed batch delete", zap.String("id", it.ID), zap.Error(err))
		}
	}
}

func (p *persistence) Close() error {
	return nil
}

// owned loads the owner's item, distinguishing missing documents from
// documents that belong to someone else.
func (p *persistence) owned(ctx context.Context, owner string, kind item.Kind, id string) (item.Item, error) {
	key := toKey(owner, kind, id)
	if p.d.Has(key) {
		return p.read(key)
	}
	other, ok := p.locate(ctx, kind, id)
	if !ok {
		return item.Item{}, notFound(kind, id)
	}
	it, err := p.read(other)
	if err != nil {
		return item.Item{}, err
	}
	if err := checkOwner(it, owner); err != nil {
		return item.Item{}, err
	}
	return it, nil
}

// locate finds the key for kind/id regardless of owner.
func (p *persistence) locate(ctx context.Context, kind item.Kind, id string) (string, bool) {
	if id == "" || strings.Contains(id, keySeparator) {
		return "", false
	}
	suffix := keySeparator + string(kind) + keySeparator + id
	for key := range p.d.Keys(ctx.Done()) {
		if strings.HasSuffix(key, suffix) {
			return key, true
		}
	}
	return "", false
}

func keyToPathTransform(s string) *diskv.PathKey {
	parts := strings.Split(s, keySeparator)
	return &diskv.PathKey{
		Path:     parts[:len(parts)-1],
		FileName: parts[len(parts)-1],
	}
}

func pathToKeyTransform(pathKey *diskv.PathKey) string {
	return strings.Join(append(append([]string{}, pathKey.Path...), pathKey.FileName), keySeparator)
}

// toKey makes `owner:kind:id`. An empty id yields the collection prefix.
func toKey(owner string, kind item.Kind, id string) string {
	return strings.Join([]string{encodeOwner(owner), string(kind), id}, keySeparator)
}

func encodeOwner(owner string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(owner))
}

func decodeOwner(encoded string) (string, bool) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	return string(b), true
}
