package svckit

import (
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/uptrace/bun"
)

func modelKey(m *TestModel) string { return m.ID }

func TestCursor(t *testing.T) {
	c := EncodeCursor("42")
	key, err := DecodeCursor(c)
	if err != nil || key != "42" {
		t.Errorf("expected 42, got %q (%v)", key, err)
	}

	if key, err := DecodeCursor(""); err != nil || key != "" {
		t.Errorf("expected empty cursor to decode to nothing, got %q (%v)", key, err)
	}

	for _, bad := range []string{"!!!", base64.RawURLEncoding.EncodeToString([]byte("{}")), base64.RawURLEncoding.EncodeToString([]byte("[1]"))} {
		if _, err := DecodeCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Errorf("DecodeCursor(%q): expected ErrInvalidCursor, got %v", bad, err)
		}
	}
}

func TestListAfter_FirstPage(t *testing.T) {
	pool, mock, _ := newMockPool(t, nil)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM "test_models" AS "tm" ORDER BY "tm"."id" ASC LIMIT 3`)).
		WillReturnRows(sqlmock.NewRows(testModelColumns).
			AddRow("a", "Ann", "ann@example.com", 20, now).
			AddRow("b", "Ben", "ben@example.com", 30, now).
			AddRow("c", "Cy", "cy@example.com", 40, now))

	page, err := ListAfter(context.Background(), pool, PageRequest{Column: "tm.id", Limit: 2}, modelKey, nil)
	if err != nil {
		t.Fatalf("ListAfter failed: %v", err)
	}
	if len(page.Items) != 2 || page.Items[1].ID != "b" {
		t.Fatalf("expected a and b, got %+v", page.Items)
	}
	if key, _ := DecodeCursor(page.NextCursor); key != "b" {
		t.Errorf("expected next cursor at b, got %q", key)
	}
	expectMet(t, mock)
}

func TestListAfter_LastPage(t *testing.T) {
	pool, mock, _ := newMockPool(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (age > 18) AND ("tm"."id" > 'b') ORDER BY "tm"."id" ASC LIMIT 21`)).
		WillReturnRows(sqlmock.NewRows(testModelColumns).AddRow("c", "Cy", "cy@example.com", 40, time.Now()))

	page, err := ListAfter(context.Background(), pool,
		PageRequest{Column: "tm.id", After: EncodeCursor("b")}, modelKey,
		func(q *bun.SelectQuery) *bun.SelectQuery { return q.Where("age > ?", 18) })
	if err != nil {
		t.Fatalf("ListAfter failed: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor != "" {
		t.Errorf("expected a single final item, got %+v", page)
	}
	expectMet(t, mock)
}

func TestListAfter_Empty(t *testing.T) {
	pool, mock, _ := newMockPool(t, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT 101`)).WillReturnRows(sqlmock.NewRows(testModelColumns))

	page, err := ListAfter(context.Background(), pool, PageRequest{Column: "tm.id", Limit: 500}, modelKey, nil)
	if err != nil {
		t.Fatalf("ListAfter failed: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected an empty, non-nil page, got %#v", page.Items)
	}
	expectMet(t, mock)
}

func TestListAfter_InvalidCursor(t *testing.T) {
	pool, mock, _ := newMockPool(t, nil)

	_, err := ListAfter(context.Background(), pool, PageRequest{Column: "tm.id", After: "not a cursor"}, modelKey, nil)
	if !errors.Is(err, ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
	expectMet(t, mock)
}
