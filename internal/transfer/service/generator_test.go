package service

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	identitydomain "festival-companion/backend/internal/identity/domain"
	identityrepo "festival-companion/backend/internal/identity/repository"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/repository"
)

func sequence(values ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

func newTestGenerator(t *testing.T, attempts int) (*Generator, *repository.MemoryRepository) {
	t.Helper()
	ids := identityrepo.NewMemoryRepository()
	for _, h := range []string{"dev-A", "dev-B"} {
		if err := ids.Put(context.Background(), &identitydomain.Identity{DeviceHandle: h, DisplayName: h, Active: true}); err != nil {
			t.Fatal(err)
		}
	}
	codes := repository.NewMemoryRepository()
	g := NewGenerator(codes, ids, 0, attempts)
	g.now = func() time.Time { return t0 }
	return g, codes
}

func TestGenerator_RetriesOnCollision(t *testing.T) {
	g, _ := newTestGenerator(t, 3)
	g.draw = sequence("482913")
	if _, err := g.Generate(context.Background(), "dev-A", domain.CreatedBySelf, ""); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	g.draw = sequence("482913", "482913", "000042")
	c, err := g.Generate(context.Background(), "dev-B", domain.CreatedBySelf, "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Value != "000042" {
		t.Errorf("Value = %q, want 000042 after two collisions", c.Value)
	}
}

func TestGenerator_Exhausted(t *testing.T) {
	g, _ := newTestGenerator(t, 5)
	g.draw = sequence("111111")
	if _, err := g.Generate(context.Background(), "dev-A", domain.CreatedBySelf, ""); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	calls := 0
	g.draw = func() (string, error) {
		calls++
		return "111111", nil
	}
	if _, err := g.Generate(context.Background(), "dev-B", domain.CreatedBySelf, ""); !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("err = %v, want ErrGenerationExhausted", err)
	}
	if calls != 5 {
		t.Errorf("draws = %d, want 5", calls)
	}
}

func TestGenerator_ReusesDeadValue(t *testing.T) {
	g, codes := newTestGenerator(t, 1)
	g.draw = sequence("222222")
	if _, err := g.Generate(context.Background(), "dev-A", domain.CreatedBySelf, ""); err != nil {
		t.Fatal(err)
	}
	g.now = func() time.Time { return t0.Add(domain.DefaultCodeTTL) }
	c, err := g.Generate(context.Background(), "dev-B", domain.CreatedByAdmin, "admin-1")
	if err != nil {
		t.Fatalf("Generate over expired value: %v", err)
	}
	if got := codes.Get("222222"); got.OwnerDeviceHandle != "dev-B" || got.CreatedByAdmin != "admin-1" || c.CreatedByAdmin != "admin-1" {
		t.Errorf("stored code = %+v", got)
	}
}

func TestGenerator_DrawError(t *testing.T) {
	g, _ := newTestGenerator(t, 5)
	boom := errors.New("entropy unavailable")
	g.draw = func() (string, error) { return "", boom }
	if _, err := g.Generate(context.Background(), "dev-A", domain.CreatedBySelf, ""); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped draw error", err)
	}
}

func TestRandomValue_FormatAndRange(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		v, err := NewGenerator(nil, nil, 0, 0).draw()
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if !codePattern.MatchString(v) {
			t.Fatalf("value %q is not 6 digits", v)
		}
		n, _ := strconv.Atoi(v)
		if n < 0 || n > 999999 {
			t.Fatalf("value %d out of range", n)
		}
		seen[v] = true
	}
	if len(seen) < 150 {
		t.Errorf("only %d distinct values in 200 draws", len(seen))
	}
}
