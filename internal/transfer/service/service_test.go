package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	auditpkg "festival-companion/backend/internal/audit"
	auditrepo "festival-companion/backend/internal/audit/repository"
	identitydomain "festival-companion/backend/internal/identity/domain"
	identityrepo "festival-companion/backend/internal/identity/repository"
	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/policy/engine"
	subdomain "festival-companion/backend/internal/subscription/domain"
	subrepo "festival-companion/backend/internal/subscription/repository"
	"festival-companion/backend/internal/transfer/domain"
	"festival-companion/backend/internal/transfer/repository"
)

var t0 = time.Date(2026, 7, 10, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type notification struct {
	kind                 string
	handle, other, name  string
	requiresReactivation bool
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *fakeNotifier) NotifyOldDevice(ctx context.Context, oldHandle, newHandle, userName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "old", handle: oldHandle, other: newHandle, name: userName})
}

func (n *fakeNotifier) PromptOrWelcomeNewDevice(ctx context.Context, newHandle, userName string, requiresReactivation bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{kind: "new", handle: newHandle, name: userName, requiresReactivation: requiresReactivation})
}

func (n *fakeNotifier) byKind(kind string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, c := range n.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type harness struct {
	svc      *Service
	codes    *repository.MemoryRepository
	ids      *identityrepo.MemoryRepository
	subs     *subrepo.MemoryRepository
	audit    *auditrepo.MemoryRepository
	notifier *fakeNotifier
	metrics  *metrics.Metrics
	clock    *fakeClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	authz, err := engine.NewOPAEvaluator(context.Background(), "")
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	h := &harness{
		codes:    repository.NewMemoryRepository(),
		ids:      identityrepo.NewMemoryRepository(),
		subs:     subrepo.NewMemoryRepository(),
		audit:    auditrepo.NewMemoryRepository(),
		notifier: &fakeNotifier{},
		metrics:  metrics.New("test"),
		clock:    &fakeClock{now: t0},
	}
	h.svc = New(Deps{
		Codes:         h.codes,
		Identities:    h.ids,
		Subscriptions: h.subs,
		Notifier:      h.notifier,
		Authorizer:    authz,
		Audit:         auditpkg.NewLogger(h.audit, nil, nil),
		Metrics:       h.metrics,
	}, Options{})
	h.svc.setClock(h.clock.Now)
	return h
}

func (h *harness) putIdentity(t *testing.T, handle, name string) {
	t.Helper()
	err := h.ids.Put(context.Background(), &identitydomain.Identity{
		DeviceHandle: handle, DisplayName: name, GroupRef: "crew-" + name, Active: true, UpdatedAt: t0,
	})
	if err != nil {
		t.Fatalf("Put identity: %v", err)
	}
}

func (h *harness) putSubscription(t *testing.T, handle string) {
	t.Helper()
	err := h.subs.Save(context.Background(), &subdomain.Subscription{
		DeviceHandle: handle, Endpoint: "https://push.example/" + handle, P256dh: "p", Auth: "a", CreatedAt: t0,
	})
	if err != nil {
		t.Fatalf("Save subscription: %v", err)
	}
}

func self(handle string) domain.Actor { return domain.Actor{ID: handle, Role: domain.RoleDevice} }

func admin(id string) domain.Actor { return domain.Actor{ID: id, Role: domain.RoleAdmin} }

func (h *harness) mustCreate(t *testing.T, handle string) *domain.Code {
	t.Helper()
	c, err := h.svc.CreateCode(context.Background(), handle, self(handle))
	if err != nil {
		t.Fatalf("CreateCode(%s): %v", handle, err)
	}
	return c
}

func (h *harness) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.svc.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func (h *harness) hasAudit(action string) bool {
	for _, a := range h.audit.Actions() {
		if a == action {
			return true
		}
	}
	return false
}

func TestCreateCode_RequiresMeaningfulIdentity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.CreateCode(ctx, "dev-A", self("dev-A")); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("no identity: err = %v, want ErrIdentityNotFound", err)
	}
	if err := h.ids.Reset(ctx, "dev-A", t0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.CreateCode(ctx, "dev-A", self("dev-A")); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("fresh identity: err = %v, want ErrIdentityNotFound", err)
	}
	if _, err := h.svc.CreateCode(ctx, " ", self(" ")); !errors.Is(err, ErrInvalidDeviceHandle) {
		t.Errorf("blank handle: err = %v, want ErrInvalidDeviceHandle", err)
	}
}

func TestCreateCode_Self(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")

	c := h.mustCreate(t, "dev-A")
	if !codePattern.MatchString(c.Value) {
		t.Errorf("Value = %q, want 6 digits", c.Value)
	}
	if c.CreatedBy != domain.CreatedBySelf || c.CreatedByAdmin != "" {
		t.Errorf("CreatedBy = %q/%q, want self with no admin", c.CreatedBy, c.CreatedByAdmin)
	}
	if !c.ExpiresAt.Equal(t0.Add(5 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", c.ExpiresAt, t0.Add(5*time.Minute))
	}
	if !h.hasAudit(auditpkg.ActionCodeCreated) {
		t.Error("code creation not audited")
	}
	active, err := h.svc.HasActiveCode(context.Background(), "dev-A")
	if err != nil || !active {
		t.Errorf("HasActiveCode = %v, %v; want true", active, err)
	}
}

func TestCreateCode_DeviceCannotMintForAnotherHandle(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")

	_, err := h.svc.CreateCode(context.Background(), "dev-A", self("dev-X"))
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
	if !h.hasAudit(auditpkg.ActionAuthorizationDenied) {
		t.Error("denial not audited")
	}
}

func TestCreateCode_AdminOnBehalf(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")

	c, err := h.svc.CreateCode(context.Background(), "dev-A", admin("admin-1"))
	if err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if c.CreatedBy != domain.CreatedByAdmin || c.CreatedByAdmin != "admin-1" {
		t.Errorf("CreatedBy = %q/%q, want admin/admin-1", c.CreatedBy, c.CreatedByAdmin)
	}
	if _, err := h.svc.CreateCode(context.Background(), "dev-A", admin("")); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("admin without id: err = %v, want ErrNotAuthorized", err)
	}
}

func TestCreateCode_DoesNotInvalidateEarlierCodes(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	first := h.mustCreate(t, "dev-A")
	h.mustCreate(t, "dev-A")

	if got := h.codes.Get(first.Value); !got.Consumable(t0) {
		t.Error("first code should stay consumable after a second is minted")
	}
}

func TestTransfer_Scenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putIdentity(t, "dev-A", "Alex")
	code := h.mustCreate(t, "dev-A")

	h.clock.Advance(30 * time.Second)
	res, err := h.svc.Transfer(ctx, code.Value, "dev-B")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.Success || res.ExportedDisplayName != "Alex" {
		t.Errorf("result = %+v", res)
	}
	b, _ := h.ids.Get(ctx, "dev-B")
	if b.DisplayName != "Alex" || b.GroupRef != "crew-Alex" || b.Fresh {
		t.Errorf("dev-B identity = %+v, want Alex's", b)
	}
	a, _ := h.ids.Get(ctx, "dev-A")
	if a.DisplayName != "" || a.GroupRef != "" || !a.Active || !a.Fresh || a.Meaningful() {
		t.Errorf("dev-A identity = %+v, want fresh sentinel", a)
	}

	h.clock.Advance(5 * time.Second)
	if _, err := h.svc.Transfer(ctx, code.Value, "dev-C"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("reuse: err = %v, want ErrInvalidOrExpiredCode", err)
	}
	h.wait(t)
	if !h.hasAudit(auditpkg.ActionTransferCompleted) || !h.hasAudit(auditpkg.ActionTransferRejected) {
		t.Errorf("audit actions = %v", h.audit.Actions())
	}
}

func TestTransfer_ExpiredCode(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	code := h.mustCreate(t, "dev-A")

	h.clock.Advance(301 * time.Second)
	if _, err := h.svc.Transfer(context.Background(), code.Value, "dev-B"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Fatalf("err = %v, want ErrInvalidOrExpiredCode", err)
	}
	if got := h.codes.Get(code.Value); got.Used {
		t.Error("expired code should not be marked used")
	}
	a, _ := h.ids.Get(context.Background(), "dev-A")
	if a.DisplayName != "Alex" {
		t.Error("identity moved on expired code")
	}
}

func TestTransfer_MalformedInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		if _, err := h.svc.Transfer(ctx, code, "dev-B"); !errors.Is(err, ErrInvalidOrExpiredCode) {
			t.Errorf("Transfer(%q) err = %v, want ErrInvalidOrExpiredCode", code, err)
		}
	}
	if _, err := h.svc.Transfer(ctx, "123456", ""); !errors.Is(err, ErrInvalidDeviceHandle) {
		t.Errorf("blank handle err = %v, want ErrInvalidDeviceHandle", err)
	}
}

func TestTransfer_SingleUseUnderConcurrency(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	code := h.mustCreate(t, "dev-A")

	const callers = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		others    []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.svc.Transfer(context.Background(), code.Value, "dev-B"+strconv.Itoa(i))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			others = append(others, err)
		}(i)
	}
	wg.Wait()
	h.wait(t)

	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	for _, err := range others {
		if !errors.Is(err, ErrInvalidOrExpiredCode) {
			t.Errorf("loser err = %v, want ErrInvalidOrExpiredCode", err)
		}
	}
}

func TestTransfer_SiblingCodesInvalidated(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	first := h.mustCreate(t, "dev-A")
	h.clock.Advance(time.Second)
	second := h.mustCreate(t, "dev-A")

	if _, err := h.svc.Transfer(context.Background(), first.Value, "dev-B"); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := h.codes.Get(second.Value); got.Consumable(h.clock.Now()) {
		t.Error("sibling code still consumable")
	}
	if _, err := h.svc.Transfer(context.Background(), second.Value, "dev-C"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("sibling redeem err = %v, want ErrInvalidOrExpiredCode", err)
	}
	active, _ := h.svc.HasActiveCode(context.Background(), "dev-A")
	if active {
		t.Error("dev-A should have no active codes")
	}
	h.wait(t)
}

func TestTransfer_ConcurrentSiblingCodes(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	first := h.mustCreate(t, "dev-A")
	h.clock.Advance(time.Second)
	second := h.mustCreate(t, "dev-A")

	targets := map[string]string{first.Value: "dev-B", second.Value: "dev-C"}
	errs := make(chan error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for value, target := range targets {
		wg.Add(1)
		go func(value, target string) {
			defer wg.Done()
			<-start
			_, err := h.svc.Transfer(context.Background(), value, target)
			errs <- err
		}(value, target)
	}
	close(start)
	wg.Wait()
	close(errs)
	h.wait(t)

	var successes int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrSourceIdentityMissing), errors.Is(err, ErrInvalidOrExpiredCode):
		default:
			t.Errorf("unexpected err = %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	var holders int
	for _, handle := range []string{"dev-A", "dev-B", "dev-C"} {
		i, _ := h.ids.Get(context.Background(), handle)
		if i.Meaningful() && i.DisplayName == "Alex" {
			holders++
		}
	}
	if holders != 1 {
		t.Errorf("identity held by %d handles, want 1", holders)
	}
}

func TestTransfer_ConcurrentSourcesOntoOneTarget(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	h.putIdentity(t, "dev-B", "Blair")
	codes := []*domain.Code{h.mustCreate(t, "dev-A"), h.mustCreate(t, "dev-B")}

	errs := make(chan error, len(codes))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, c := range codes {
		wg.Add(1)
		go func(value string) {
			defer wg.Done()
			<-start
			_, err := h.svc.Transfer(context.Background(), value, "dev-N")
			errs <- err
		}(c.Value)
	}
	close(start)
	wg.Wait()
	close(errs)
	h.wait(t)

	var successes int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrTargetDeviceOccupied):
		default:
			t.Errorf("unexpected err = %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("successes = %d, want exactly 1", successes)
	}
	var meaningful int
	for _, handle := range []string{"dev-A", "dev-B"} {
		i, _ := h.ids.Get(context.Background(), handle)
		if i.Meaningful() {
			meaningful++
		}
	}
	if meaningful != 1 {
		t.Errorf("%d sources still hold their identity, want 1", meaningful)
	}
}

func TestTransfer_TargetOccupied(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	h.putIdentity(t, "dev-B", "Blair")
	code := h.mustCreate(t, "dev-A")

	if _, err := h.svc.Transfer(context.Background(), code.Value, "dev-B"); !errors.Is(err, ErrTargetDeviceOccupied) {
		t.Fatalf("err = %v, want ErrTargetDeviceOccupied", err)
	}
	// Fail closed: the code stays consumed.
	if got := h.codes.Get(code.Value); !got.Used {
		t.Error("code should stay used after a failed transfer")
	}
	b, _ := h.ids.Get(context.Background(), "dev-B")
	if b.DisplayName != "Blair" {
		t.Error("occupied target was overwritten")
	}
	if _, err := h.svc.Transfer(context.Background(), code.Value, "dev-C"); !errors.Is(err, ErrInvalidOrExpiredCode) {
		t.Errorf("retry err = %v, want ErrInvalidOrExpiredCode", err)
	}
}

func TestTransfer_SelfTransferRejected(t *testing.T) {
	h := newHarness(t)
	h.putIdentity(t, "dev-A", "Alex")
	code := h.mustCreate(t, "dev-A")
	if _, err := h.svc.Transfer(context.Background(), code.Value, "dev-A"); !errors.Is(err, ErrTargetDeviceOccupied) {
		t.Fatalf("err = %v, want ErrTargetDeviceOccupied", err)
	}
	a, _ := h.ids.Get(context.Background(), "dev-A")
	if a.DisplayName != "Alex" {
		t.Error("self transfer must not wipe the identity")
	}
}

func TestTransfer_OverwritesPlaceholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putIdentity(t, "dev-A", "Alex")
	if err := h.ids.Reset(ctx, "dev-B", t0); err != nil {
		t.Fatal(err)
	}
	code := h.mustCreate(t, "dev-A")

	res, err := h.svc.Transfer(ctx, code.Value, "dev-B")
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !res.PlaceholderOverwritten {
		t.Error("PlaceholderOverwritten = false")
	}
	if !h.hasAudit(auditpkg.ActionPlaceholderOverwritten) {
		t.Error("placeholder overwrite not audited")
	}
	h.wait(t)
}

func TestTransfer_SourceIdentityMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putIdentity(t, "dev-A", "Alex")
	code := h.mustCreate(t, "dev-A")
	if err := h.ids.Reset(ctx, "dev-A", t0); err != nil {
		t.Fatal(err)
	}
	if _, err := h.svc.Transfer(ctx, code.Value, "dev-B"); !errors.Is(err, ErrSourceIdentityMissing) {
		t.Fatalf("err = %v, want ErrSourceIdentityMissing", err)
	}
	if got := h.codes.Get(code.Value); !got.Used {
		t.Error("code should stay used")
	}
}

func TestTransfer_PushReconciliation(t *testing.T) {
	testCases := []struct {
		name                 string
		oldSub, newSub       bool
		requiresReactivation bool
	}{
		{"both subscribed", true, true, false},
		{"only old subscribed", true, false, true},
		{"only new subscribed", false, true, false},
		{"neither subscribed", false, false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.putIdentity(t, "dev-A", "Alex")
			if tc.oldSub {
				h.putSubscription(t, "dev-A")
			}
			if tc.newSub {
				h.putSubscription(t, "dev-B")
			}
			code := h.mustCreate(t, "dev-A")

			res, err := h.svc.Transfer(ctx, code.Value, "dev-B")
			if err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			if res.RequiresReactivation != tc.requiresReactivation {
				t.Errorf("RequiresReactivation = %v, want %v", res.RequiresReactivation, tc.requiresReactivation)
			}
			if old, _ := h.subs.Get(ctx, "dev-A"); old != nil {
				t.Error("old subscription should always be deleted")
			}
			if res.SubscriptionDeleted != tc.oldSub {
				t.Errorf("SubscriptionDeleted = %v, want %v", res.SubscriptionDeleted, tc.oldSub)
			}
			if nw, _ := h.subs.Get(ctx, "dev-B"); (nw != nil) != tc.newSub {
				t.Errorf("new subscription present = %v, want %v", nw != nil, tc.newSub)
			}

			h.wait(t)
			olds, news := h.notifier.byKind("old"), h.notifier.byKind("new")
			if len(olds) != 1 || olds[0].handle != "dev-A" || olds[0].other != "dev-B" || olds[0].name != "Alex" {
				t.Errorf("old device notifications = %+v", olds)
			}
			if len(news) != 1 || news[0].handle != "dev-B" || news[0].requiresReactivation != tc.requiresReactivation {
				t.Errorf("new device notifications = %+v", news)
			}
		})
	}
}

func TestListActiveCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putIdentity(t, "dev-A", "Alex")
	h.putIdentity(t, "dev-B", "Blair")
	old := h.mustCreate(t, "dev-A")
	h.clock.Advance(2 * time.Minute)
	fresh := h.mustCreate(t, "dev-B")

	if _, err := h.svc.ListActiveCodes(ctx, self("dev-A")); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("device list err = %v, want ErrNotAuthorized", err)
	}

	list, err := h.svc.ListActiveCodes(ctx, admin("admin-1"))
	if err != nil {
		t.Fatalf("ListActiveCodes: %v", err)
	}
	if len(list) != 2 || list[0].Value != old.Value || list[1].Value != fresh.Value {
		t.Fatalf("list = %+v, want both ordered by expiry", list)
	}
	if list[0].RemainingSeconds != 180 {
		t.Errorf("RemainingSeconds = %d, want 180", list[0].RemainingSeconds)
	}

	// Past the first code's expiry but before any sweep.
	h.clock.Advance(3*time.Minute + time.Second)
	list, err = h.svc.ListActiveCodes(ctx, admin("admin-1"))
	if err != nil {
		t.Fatalf("ListActiveCodes: %v", err)
	}
	if len(list) != 1 || list[0].Value != fresh.Value {
		t.Errorf("list = %+v, want only the unexpired code", list)
	}
}

func TestCleanupExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.putIdentity(t, "dev-A", "Alex")
	h.mustCreate(t, "dev-A")
	h.mustCreate(t, "dev-A")

	n, err := h.svc.CleanupExpired(ctx)
	if err != nil || n != 0 {
		t.Fatalf("CleanupExpired before expiry = %d, %v", n, err)
	}
	h.clock.Advance(5 * time.Minute)
	n, err = h.svc.CleanupExpired(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CleanupExpired = %d, %v; want 2", n, err)
	}
	if !h.hasAudit(auditpkg.ActionCodesSwept) {
		t.Error("sweep not audited")
	}
	n, err = h.svc.CleanupExpired(ctx)
	if err != nil || n != 0 {
		t.Errorf("second CleanupExpired = %d, %v; want 0", n, err)
	}

	if _, err := h.svc.CleanupExpiredAs(ctx, self("dev-A")); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("device cleanup err = %v, want ErrNotAuthorized", err)
	}
	if _, err := h.svc.CleanupExpiredAs(ctx, admin("admin-1")); err != nil {
		t.Errorf("admin cleanup: %v", err)
	}
}

func TestService_NilAuthorizerAllowsOnlySelf(t *testing.T) {
	ids := identityrepo.NewMemoryRepository()
	_ = ids.Put(context.Background(), &identitydomain.Identity{DeviceHandle: "dev-A", DisplayName: "Alex", Active: true})
	svc := New(Deps{Codes: repository.NewMemoryRepository(), Identities: ids}, Options{})

	if _, err := svc.CreateCode(context.Background(), "dev-A", self("dev-A")); err != nil {
		t.Errorf("self CreateCode: %v", err)
	}
	if _, err := svc.CreateCode(context.Background(), "dev-A", admin("admin-1")); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("admin CreateCode err = %v, want ErrNotAuthorized", err)
	}
}
