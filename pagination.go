package svckit

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/uptrace/bun"
)

const (
	// DefaultPageSize is used when a page size is not positive
	DefaultPageSize = 20
	// MaxPageSize caps the page size
	MaxPageSize = 100
)

// Page is one page of a keyset-paginated listing. NextCursor is empty on
// the last page.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// PageRequest selects a page ordered ascending by Column, which must be
// unique (usually the primary key). After is the NextCursor of the
// previous page, empty for the first page.
type PageRequest struct {
	Column string
	After  string
	Limit  int
}

type cursor struct {
	Key string `json:"k"`
}

// EncodeCursor encodes a key value as an opaque cursor
func EncodeCursor(key string) string {
	data, _ := json.Marshal(cursor{Key: key})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor returns the key carried by an EncodeCursor value. An empty
// cursor decodes to an empty key.
func DecodeCursor(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err == nil {
		var c cursor
		if err = json.Unmarshal(data, &c); err == nil && c.Key != "" {
			return c.Key, nil
		}
	}
	return "", &Error{Code: CodeInvalidCursor, Message: "invalid page cursor", Op: "DecodeCursor", Cause: err}
}

// ListAfter returns the page of T that follows req.After. key extracts the
// Column value of an item and becomes the next cursor. query may add
// filters; it must not change the ordering or the limit.
func ListAfter[T any](ctx context.Context, db IDB, req PageRequest, key func(*T) string, query func(q *bun.SelectQuery) *bun.SelectQuery) (*Page[T], error) {
	limit := req.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	after, err := DecodeCursor(req.After)
	if err != nil {
		return nil, err
	}

	var items []T
	q := db.NewSelect().Model(&items)
	if query != nil {
		q = query(q)
	}
	if after != "" {
		q = q.Where("? > ?", bun.Ident(req.Column), after)
	}
	// One extra row tells whether another page exists
	if err := q.OrderExpr("? ASC", bun.Ident(req.Column)).Limit(limit + 1).Scan(ctx); err != nil {
		return nil, wrapError(err, "ListAfter")
	}

	page := &Page[T]{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = EncodeCursor(key(&page.Items[limit-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}
