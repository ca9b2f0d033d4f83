package handlers

import (
	"errors"
	"testing"
	"time"

	"github.com/openstatus-dev/openstatus/internal/pagination"
)

func TestMain(m *testing.M) {
	pagination.SetTokenSecretForTest("test-secret")
	m.Run()
}

func TestResolvePageDefaults(t *testing.T) {
	limit, cursor, err := resolvePage(pageRequest{}, 1, "monitors")
	if err != nil {
		t.Fatalf("resolvePage() = %v", err)
	}
	if limit != defaultPageSize {
		t.Errorf("limit = %d, want %d", limit, defaultPageSize)
	}
	if cursor != nil {
		t.Errorf("cursor = %+v, want nil", cursor)
	}
}

func TestResolvePageClampsSize(t *testing.T) {
	limit, _, err := resolvePage(pageRequest{PageSize: 10000}, 1, "monitors")
	if err != nil {
		t.Fatalf("resolvePage() = %v", err)
	}
	if limit != maxPageSize {
		t.Errorf("limit = %d, want %d", limit, maxPageSize)
	}
}

func TestResolvePageTokenKeepsOriginalShape(t *testing.T) {
	token, err := nextPageToken(1, "monitors", 15, time.Now(), 40)
	if err != nil {
		t.Fatal(err)
	}

	limit, cursor, err := resolvePage(pageRequest{PageSize: 99, PageToken: token}, 1, "monitors")
	if err != nil {
		t.Fatalf("resolvePage() = %v", err)
	}
	if limit != 15 {
		t.Errorf("limit = %d, want the token's original 15", limit)
	}
	if cursor == nil || cursor.ID != 40 {
		t.Errorf("cursor = %+v, want ID 40", cursor)
	}
}

func TestResolvePageRejectsForeignWorkspaceToken(t *testing.T) {
	token, err := nextPageToken(1, "monitors", 15, time.Now(), 40)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = resolvePage(pageRequest{PageToken: token}, 2, "monitors")
	if !errors.Is(err, pagination.ErrInvalidCursor) {
		t.Errorf("resolvePage(foreign workspace) = %v, want ErrInvalidCursor", err)
	}
}

func TestResolvePageRejectsWrongResource(t *testing.T) {
	token, err := nextPageToken(1, "monitors", 15, time.Now(), 40)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = resolvePage(pageRequest{PageToken: token}, 1, "notifiers")
	if !errors.Is(err, pagination.ErrInvalidCursor) {
		t.Errorf("resolvePage(wrong resource) = %v, want ErrInvalidCursor", err)
	}
}
