package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "figflow:"

// spliceScript applies one edit server-side so concurrent writers never interleave.
// Returns the new length, -1 when the key is gone, -2 when the range does not fit.
var spliceScript = backend.NewScript(`
local cur = redis.call("GET", KEYS[1])
if not cur then
	return -1
end
local s = tonumber(ARGV[1])
local e = tonumber(ARGV[2])
if s < 0 or e < s or e > #cur then
	return -2
end
local nxt = string.sub(cur, 1, s) .. ARGV[3] .. string.sub(cur, e + 1)
redis.call("SET", KEYS[1], nxt)
return #nxt
`)

// lenScript returns the byte length without transferring the document, or -1 when the
// key is gone.
var lenScript = backend.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("STRLEN", KEYS[1])
`)

// Document implements ports.Document on a Redis string.
// A deleted key reads as a closed document.
type Document struct {
	client *backend.Client
	name   string
	prefix string
}

// Option configures a Document.
type Option func(*Document)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(d *Document) {
		d.prefix = prefix
	}
}

// NewDocument binds to an existing document key. Use Create to write initial contents.
func NewDocument(client *backend.Client, name string, opts ...Option) *Document {
	d := &Document{
		client: client,
		name:   name,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Create stores text under name, overwriting any previous contents, and returns the document.
func Create(ctx context.Context, client *backend.Client, name, text string, opts ...Option) (*Document, error) {
	d := NewDocument(client, name, opts...)
	if err := client.Set(ctx, d.key(), text, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to create document %q: %w", name, err)
	}
	return d, nil
}

func (d *Document) key() string {
	return d.prefix + "doc:" + d.name
}

func (d *Document) Name() string {
	return d.name
}

func (d *Document) Text(ctx context.Context) (string, error) {
	text, err := d.client.Get(ctx, d.key()).Result()
	if errors.Is(err, backend.Nil) {
		return "", domain.ErrDocumentClosed
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document %q: %w", d.name, err)
	}
	return text, nil
}

func (d *Document) Len(ctx context.Context) (int, error) {
	n, err := lenScript.Run(ctx, d.client, []string{d.key()}).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to measure document %q: %w", d.name, err)
	}
	if n < 0 {
		return 0, domain.ErrDocumentClosed
	}
	return n, nil
}

func (d *Document) Replace(ctx context.Context, r domain.Range, text string) error {
	n, err := spliceScript.Run(ctx, d.client, []string{d.key()}, r.Start, r.End, text).Int()
	if err != nil {
		return fmt.Errorf("failed to edit document %q: %w", d.name, err)
	}
	switch n {
	case -1:
		return domain.ErrDocumentClosed
	case -2:
		return fmt.Errorf("%w: [%d,%d)", domain.ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Delete removes the document. Later operations fail with domain.ErrDocumentClosed.
func (d *Document) Delete(ctx context.Context) error {
	return d.client.Del(ctx, d.key()).Err()
}

var _ ports.Document = (*Document)(nil)
