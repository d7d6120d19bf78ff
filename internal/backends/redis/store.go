// Package redis implements the document store port on Redis. Documents are
// zstd-compressed JSON bodies; a set per collection indexes the member keys
// so queries can iterate a collection.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

const (
	docKeyTemplate  = "_pd_doc_%s_%s"
	collKeyTemplate = "_pd_coll_%s"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

func docKeyName(collection, key string) string {
	return fmt.Sprintf(docKeyTemplate, collection, key)
}

func collKeyName(collection string) string {
	return fmt.Sprintf(collKeyTemplate, collection)
}

type Store struct {
	cli *redis.Client
}

func NewStore(cli *redis.Client) *Store {
	return &Store{cli: cli}
}

func (s *Store) Get(ctx context.Context, collection, key string) (types.Document, error) {
	raw, err := s.cli.Get(ctx, docKeyName(collection, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, types.Err(types.ErrStoreAccess, err, "get %s/%s", collection, key)
	}
	return decodeDoc(raw)
}

func (s *Store) Set(ctx context.Context, collection, key string, fields types.Document, merge bool) error {
	doc := fields
	if merge {
		existing, err := s.Get(ctx, collection, key)
		if err != nil {
			return err
		}
		if existing != nil {
			for k, v := range fields {
				existing[k] = v
			}
			doc = existing
		}
	}
	raw, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	pipe := s.cli.TxPipeline()
	pipe.Set(ctx, docKeyName(collection, key), raw, 0)
	pipe.SAdd(ctx, collKeyName(collection), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.Err(types.ErrStoreAccess, err, "set %s/%s", collection, key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	pipe := s.cli.TxPipeline()
	pipe.Del(ctx, docKeyName(collection, key))
	pipe.SRem(ctx, collKeyName(collection), key)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.Err(types.ErrStoreAccess, err, "delete %s/%s", collection, key)
	}
	return nil
}

// Query filters in-process over the collection index. Redis has no
// server-side field queries over opaque bodies; collections here are small
// (teams, webhooks), so the round trips are acceptable.
func (s *Store) Query(ctx context.Context, collection, field string, op ports.Operator, value any) ([]ports.Doc, error) {
	docs, err := s.All(ctx, collection)
	if err != nil {
		return nil, err
	}
	var out []ports.Doc
	for _, doc := range docs {
		if matchesDoc(doc.Fields, field, op, value) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Store) All(ctx context.Context, collection string) ([]ports.Doc, error) {
	keys, err := s.cli.SMembers(ctx, collKeyName(collection)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, types.Err(types.ErrStoreAccess, err, "members %s", collection)
	}
	docs := make([]ports.Doc, 0, len(keys))
	for _, key := range keys {
		doc, err := s.Get(ctx, collection, key)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			// index entry without a body, e.g. a torn delete; skip
			continue
		}
		docs = append(docs, ports.Doc{Key: key, Fields: doc})
	}
	return docs, nil
}

func matchesDoc(doc types.Document, field string, op ports.Operator, value any) bool {
	switch op {
	case ports.Equals:
		return doc[field] == value
	case ports.ArrayContains:
		for _, e := range types.StrSlice(doc, field) {
			if e == value {
				return true
			}
		}
	}
	return false
}

func encodeDoc(doc types.Document) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, nil), nil
}

func decodeDoc(raw []byte) (types.Document, error) {
	plain, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress document: %w", err)
	}
	var doc types.Document
	if err := json.Unmarshal(plain, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
