package figflow

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/figflow/pkg/adapters/file"
	"github.com/aretw0/figflow/pkg/adapters/memory"
	"github.com/aretw0/figflow/pkg/adapters/redis"
	"github.com/aretw0/figflow/pkg/domain"
	"github.com/aretw0/figflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DocumentOpener creates (or reopens) the named document so that it holds text.
type DocumentOpener func(ctx context.Context, name, text string) (ports.Document, error)

// MemoryDocuments keeps documents in process memory.
func MemoryDocuments() DocumentOpener {
	return func(ctx context.Context, name, text string) (ports.Document, error) {
		return memory.NewDocument(name, text), nil
	}
}

// FileDocuments stores each document as a file under dir.
// Names must stay inside dir.
func FileDocuments(dir string, opts ...file.Option) DocumentOpener {
	return func(ctx context.Context, name, text string) (ports.Document, error) {
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("document name %q escapes %s", name, dir)
		}
		doc, err := file.Open(filepath.Join(dir, name), opts...)
		if err != nil {
			return nil, err
		}
		if err := reset(ctx, doc, text); err != nil {
			return nil, err
		}
		return doc, nil
	}
}

// RedisDocuments stores documents as Redis strings.
func RedisDocuments(client *backend.Client, opts ...redis.Option) DocumentOpener {
	return func(ctx context.Context, name, text string) (ports.Document, error) {
		return redis.Create(ctx, client, name, text, opts...)
	}
}

func reset(ctx context.Context, doc ports.Document, text string) error {
	current, err := doc.Text(ctx)
	if err != nil {
		return err
	}
	if current == text {
		return nil
	}
	return doc.Replace(ctx, domain.Full(len(current)), text)
}
