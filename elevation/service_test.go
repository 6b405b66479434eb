package elevation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sudolite/sudolite/types"
)

// fakeStore is an in-memory UserStore with per-mutation failure injection.
type fakeStore struct {
	users map[int64]*types.User

	failGrant   bool
	failRefresh bool
	failRevoke  bool
	failDemote  bool

	refreshCalls int
}

var errStore = errors.New("store unavailable")

func newFakeStore(users ...*types.User) *fakeStore {
	s := &fakeStore{users: make(map[int64]*types.User)}
	for _, u := range users {
		copied := *u
		s.users[u.ID] = &copied
	}
	return s
}

func (s *fakeStore) GetUserByID(_ context.Context, userID int64) (*types.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return nil, types.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) GrantElevation(_ context.Context, userID int64, since int64) error {
	if s.failGrant {
		return errStore
	}
	u := s.users[userID]
	u.IsAdmin = true
	u.ElevatedSince = since
	u.ElevationEligible = true
	return nil
}

func (s *fakeStore) RefreshElevation(_ context.Context, userID int64, since int64) error {
	s.refreshCalls++
	if s.failRefresh {
		return errStore
	}
	u := s.users[userID]
	u.ElevatedSince = since
	u.ElevationEligible = true
	return nil
}

func (s *fakeStore) RevokeElevation(_ context.Context, userID int64) error {
	if s.failRevoke {
		return errStore
	}
	u := s.users[userID]
	u.IsAdmin = false
	u.ElevatedSince = 0
	return nil
}

func (s *fakeStore) DemotePermanentAdmin(_ context.Context, userID int64) error {
	if s.failDemote {
		return errStore
	}
	u := s.users[userID]
	u.IsAdmin = false
	u.ElevatedSince = 0
	u.ElevationEligible = true
	return nil
}

func (s *fakeStore) ListExpiredElevations(_ context.Context, cutoff int64) ([]int64, error) {
	var ids []int64
	for id, u := range s.users {
		if u.IsAdmin && u.ElevatedSince > 0 && u.ElevatedSince < cutoff {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// fakeVerifier accepts a single password.
type fakeVerifier struct {
	password string
}

func (v fakeVerifier) Verify(password, _ string) bool {
	return password == v.password
}

// fakeAudit records created entries.
type fakeAudit struct {
	entries []*types.AuditLog
}

func (a *fakeAudit) CreateAuditLog(_ context.Context, entry *types.AuditLog) error {
	a.entries = append(a.entries, entry)
	return nil
}

const testNow = int64(1_700_000_000)

func newTestService(store *fakeStore, audit AuditLogger) *Service {
	svc := NewService(store, fakeVerifier{password: "correct-pw"}, audit, 600*time.Second)
	svc.now = func() time.Time { return time.Unix(testNow, 0) }
	return svc
}

func TestElevateSuccess(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, Username: "ana", ElevationEligible: true})
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Elevate(context.Background(), user, "correct-pw", RequestMeta{IPAddress: "10.0.0.1"})

	if !result.Success || !result.Reload {
		t.Fatalf("Elevate = %+v, want success with reload", result)
	}
	if result.User == nil || !result.User.IsAdmin || result.User.ElevatedSince != testNow {
		t.Errorf("result user = %+v, want admin elevated at %d", result.User, testNow)
	}

	persisted := store.users[1]
	if !persisted.IsAdmin || persisted.ElevatedSince != testNow || !persisted.ElevationEligible {
		t.Errorf("persisted user = %+v, want admin with timestamp", persisted)
	}

	if len(audit.entries) != 1 || audit.entries[0].Action != types.ActionElevationGranted {
		t.Errorf("audit entries = %+v, want one elevation_granted", audit.entries)
	}
}

func TestElevateWrongPassword(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: true})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Elevate(context.Background(), user, "wrong-pw", RequestMeta{})

	if result.Success {
		t.Fatal("Elevate with wrong password succeeded")
	}
	if result.Message != MsgAccessDenied {
		t.Errorf("message = %q, want %q", result.Message, MsgAccessDenied)
	}
	if store.users[1].IsAdmin {
		t.Error("record mutated on failed elevation")
	}
}

func TestElevateNotEligible(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: false})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)

	// Denied regardless of password correctness, with the same message
	// as every other denial branch.
	for _, pw := range []string{"correct-pw", "wrong-pw"} {
		result := svc.Elevate(context.Background(), user, pw, RequestMeta{})
		if result.Success {
			t.Fatalf("Elevate(%q) succeeded for ineligible user", pw)
		}
		if result.Message != MsgAccessDenied {
			t.Errorf("message = %q, want %q", result.Message, MsgAccessDenied)
		}
	}
	if store.users[1].IsAdmin || store.users[1].ElevatedSince != 0 {
		t.Error("record mutated for ineligible user")
	}
}

func TestElevateAlreadyAdmin(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: true, IsAdmin: true, ElevatedSince: testNow - 10})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Elevate(context.Background(), user, "correct-pw", RequestMeta{})

	if result.Success || result.Message != MsgAccessDenied {
		t.Fatalf("Elevate for admin = %+v, want generic denial", result)
	}
	if store.users[1].ElevatedSince != testNow-10 {
		t.Error("timestamp changed on denied re-elevation")
	}
}

func TestElevatePasswordValidation(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: true})
	svc := newTestService(store, nil)
	user, _ := store.GetUserByID(context.Background(), 1)

	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}

	for _, pw := range []string{"", "   ", string(long)} {
		result := svc.Elevate(context.Background(), user, pw, RequestMeta{})
		if result.Success || result.Message != MsgAccessDenied {
			t.Errorf("Elevate(%d bytes) = %+v, want generic denial", len(pw), result)
		}
	}
}

func TestElevateNoUser(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	result := svc.Elevate(context.Background(), nil, "correct-pw", RequestMeta{})
	if result.Success || result.Message != MsgAuthRequired {
		t.Fatalf("Elevate without user = %+v, want authentication required", result)
	}
}

func TestElevateStoreFailure(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: true})
	store.failGrant = true
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Elevate(context.Background(), user, "correct-pw", RequestMeta{})

	if result.Success {
		t.Fatal("Elevate succeeded despite store failure")
	}
	if result.Message != MsgUnavailable {
		t.Errorf("message = %q, want %q", result.Message, MsgUnavailable)
	}
}

func TestLeave(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: testNow - 60, ElevationEligible: true})
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Leave(context.Background(), user, RequestMeta{})

	if !result.Success || !result.Reload {
		t.Fatalf("Leave = %+v, want success with reload", result)
	}
	if store.users[1].IsAdmin || store.users[1].ElevatedSince != 0 {
		t.Errorf("persisted user = %+v, want revoked", store.users[1])
	}

	// Retrying after success degrades to a clean denial without
	// reverting the first call's mutation.
	again := svc.Leave(context.Background(), result.User, RequestMeta{})
	if again.Success || again.Message != MsgAccessDenied {
		t.Fatalf("second Leave = %+v, want generic denial", again)
	}
	if store.users[1].IsAdmin {
		t.Error("second Leave reverted state")
	}
}

func TestLeavePermanentAdmin(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: 0})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Leave(context.Background(), user, RequestMeta{})

	if result.Success || result.Message != MsgAccessDenied {
		t.Fatalf("Leave for permanent admin = %+v, want generic denial", result)
	}
	if !store.users[1].IsAdmin {
		t.Error("permanent admin flag cleared by Leave")
	}
}

func TestLeaveNonAdmin(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Leave(context.Background(), user, RequestMeta{})

	if result.Success || result.Message != MsgAccessDenied {
		t.Fatalf("Leave for non-admin = %+v, want generic denial", result)
	}
}

func TestProcessRequestExpired(t *testing.T) {
	// 15 minutes into a 10 minute window.
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: testNow - 900, ElevationEligible: true})
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	user, _ := store.GetUserByID(context.Background(), 1)
	updated := svc.ProcessRequest(context.Background(), user, RequestMeta{})

	if updated.IsAdmin || updated.ElevatedSince != 0 {
		t.Errorf("updated user = %+v, want demoted", updated)
	}
	if store.users[1].IsAdmin || store.users[1].ElevatedSince != 0 {
		t.Errorf("persisted user = %+v, want demoted", store.users[1])
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != types.ActionElevationExpired {
		t.Errorf("audit entries = %+v, want one elevation_expired", audit.entries)
	}
}

func TestProcessRequestRefresh(t *testing.T) {
	// 2 minutes into a 10 minute window.
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: testNow - 120, ElevationEligible: true})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	updated := svc.ProcessRequest(context.Background(), user, RequestMeta{})

	if !updated.IsAdmin {
		t.Error("refresh cleared admin flag")
	}
	if updated.ElevatedSince != testNow {
		t.Errorf("updated timestamp = %d, want %d", updated.ElevatedSince, testNow)
	}
	if store.users[1].ElevatedSince != testNow {
		t.Errorf("persisted timestamp = %d, want %d", store.users[1].ElevatedSince, testNow)
	}
}

func TestProcessRequestPermanentAdmin(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: 0})
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	user, _ := store.GetUserByID(context.Background(), 1)
	updated := svc.ProcessRequest(context.Background(), user, RequestMeta{})

	if updated.IsAdmin {
		t.Error("permanent admin kept admin flag")
	}
	if !updated.ElevationEligible {
		t.Error("demoted permanent admin not marked eligible")
	}
	persisted := store.users[1]
	if persisted.IsAdmin || !persisted.ElevationEligible || persisted.ElevatedSince != 0 {
		t.Errorf("persisted user = %+v, want demoted and eligible", persisted)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != types.ActionPermanentAdminDemoted {
		t.Errorf("audit entries = %+v, want one permanent_admin_demoted", audit.entries)
	}
}

func TestProcessRequestNoOp(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	updated := svc.ProcessRequest(context.Background(), user, RequestMeta{})

	if updated != user {
		t.Error("no-op returned a different user record")
	}
	if store.refreshCalls != 0 {
		t.Error("no-op triggered a store write")
	}
}

func TestProcessRequestRefreshFailureTolerated(t *testing.T) {
	store := newFakeStore(&types.User{ID: 1, IsAdmin: true, ElevatedSince: testNow - 120})
	store.failRefresh = true
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	updated := svc.ProcessRequest(context.Background(), user, RequestMeta{})

	// A missed refresh keeps the prior state; the request proceeds.
	if !updated.IsAdmin || updated.ElevatedSince != testNow-120 {
		t.Errorf("updated user = %+v, want unchanged prior state", updated)
	}
}

func TestElevateThenGuardRefreshes(t *testing.T) {
	// A fresh grant evaluated at the same instant must classify as a
	// refresh, never as expiry or demotion.
	store := newFakeStore(&types.User{ID: 1, ElevationEligible: true})
	svc := newTestService(store, nil)

	user, _ := store.GetUserByID(context.Background(), 1)
	result := svc.Elevate(context.Background(), user, "correct-pw", RequestMeta{})
	if !result.Success {
		t.Fatalf("Elevate = %+v, want success", result)
	}

	got := Decide(result.User.IsAdmin, result.User.ElevatedSince, testNow, svc.Timeout())
	if got != DecisionRefresh {
		t.Errorf("Decide after grant = %v, want refresh", got)
	}
}

func TestClearOnLogout(t *testing.T) {
	store := newFakeStore(
		&types.User{ID: 1, IsAdmin: true, ElevatedSince: testNow - 60},
		&types.User{ID: 2, IsAdmin: true, ElevatedSince: 0},
	)
	audit := &fakeAudit{}
	svc := newTestService(store, audit)

	elevated, _ := store.GetUserByID(context.Background(), 1)
	if err := svc.ClearOnLogout(context.Background(), elevated, RequestMeta{}); err != nil {
		t.Fatalf("ClearOnLogout: %v", err)
	}
	if store.users[1].IsAdmin || store.users[1].ElevatedSince != 0 {
		t.Errorf("user 1 = %+v, want elevation cleared", store.users[1])
	}

	// A permanent admin's flag is not cleared by logout.
	permanent, _ := store.GetUserByID(context.Background(), 2)
	if err := svc.ClearOnLogout(context.Background(), permanent, RequestMeta{}); err != nil {
		t.Fatalf("ClearOnLogout: %v", err)
	}
	if !store.users[2].IsAdmin {
		t.Error("permanent admin demoted by logout")
	}
}
