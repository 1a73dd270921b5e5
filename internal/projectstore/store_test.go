package projectstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voss/atelier/internal/apperr"
	"github.com/voss/atelier/internal/models"
	"github.com/voss/atelier/internal/remote"
	"github.com/voss/atelier/internal/testutil"
)

func testStore(t *testing.T) (*Store, *testutil.FakeRemote) {
	t.Helper()
	fake := testutil.NewFakeRemote()
	srv := fake.Server(t)
	return New(remote.NewClient(srv.URL, "", 5*time.Second)), fake
}

func TestSet_CreatesThenUpdates(t *testing.T) {
	s, fake := testStore(t)
	ctx := context.Background()

	rec := &models.ProjectRecord{ID: "p1", Name: "v1"}
	if err := s.Set(ctx, rec); err != nil {
		t.Fatalf("first Set: %v", err)
	}
	if fake.Calls("createProject") != 1 {
		t.Errorf("createProject calls = %d, want 1", fake.Calls("createProject"))
	}

	rec.Name = "v2"
	if err := s.Set(ctx, rec); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	if fake.Calls("updateProject") != 1 {
		t.Errorf("updateProject calls = %d, want 1", fake.Calls("updateProject"))
	}

	got, err := s.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "v2" {
		t.Errorf("name = %q", got.Name)
	}
}

func TestSet_ConcurrentSameID(t *testing.T) {
	s, fake := testStore(t)
	ctx := context.Background()

	// Without per-id serialization both writers could probe "not found"
	// and both create; the second create would 409.
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Set(ctx, &models.ProjectRecord{ID: "race", Name: "w"})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("writer %d: %v", i, err)
		}
	}
	if fake.Calls("createProject") != 1 {
		t.Errorf("createProject calls = %d, want 1", fake.Calls("createProject"))
	}
}

func TestRemove_Idempotent(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, &models.ProjectRecord{ID: "p1", Name: "x"})
	if err := s.Remove(ctx, "p1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "p1"); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if _, err := s.Get(ctx, "p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after remove = %v, want ErrNotFound", err)
	}
}

func TestListAndLoadAll(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, &models.ProjectRecord{ID: "a", Name: "A"})
	_ = s.Set(ctx, &models.ProjectRecord{ID: "b", Name: "B"})

	ids, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v", ids)
	}

	recs, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("records = %d, want 2", len(recs))
	}
}

func TestClear(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	_ = s.Set(ctx, &models.ProjectRecord{ID: "a", Name: "A"})
	_ = s.Set(ctx, &models.ProjectRecord{ID: "b", Name: "B"})

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	ids, _ := s.List(ctx)
	if len(ids) != 0 {
		t.Errorf("ids after clear = %v", ids)
	}
}
