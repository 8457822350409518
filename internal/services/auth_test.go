package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/internal/services"
	"github.com/AnshRaj112/partsdesk-auth/internal/testkit"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []models.AuthEvent
}

func (r *recordingAudit) Record(_ context.Context, ev models.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type authFixture struct {
	auth   *services.Authenticator
	users  *testkit.UserStore
	ledger *services.OtpLedger
	disp   *testkit.Dispatcher
	audit  *recordingAudit
}

func newAuthFixture(t *testing.T, codes ...string) *authFixture {
	t.Helper()
	ledger, _, disp, clock := newLedger(t, codes...)
	users := testkit.NewUserStore()
	audit := &recordingAudit{}
	creds := services.NewCredentialVerifier(users, nil)
	auth := services.NewAuthenticator(users, creds, ledger, nil,
		services.WithAuditRecorder(audit), services.WithAuthClock(clock.Now))
	return &authFixture{auth: auth, users: users, ledger: ledger, disp: disp, audit: audit}
}

func seedUser(t *testing.T, users *testkit.UserStore, email, phone, username, password string) *models.User {
	t.Helper()
	u := &models.User{
		ID:        uuid.New(),
		CreatedAt: epoch,
		UpdatedAt: epoch,
		Email:     models.StringPtr(email),
		Phone:     models.StringPtr(phone),
		Username:  models.StringPtr(username),
		Role:      models.RoleCustomer,
	}
	if password != "" {
		h, err := utils.HashPassword(password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		u.PasswordHash = &h
	}
	if err := users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestLoginWithPassword(t *testing.T) {
	f := newAuthFixture(t)
	u := seedUser(t, f.users, "a@x.io", "5551234", "alice", "correct horse")
	ctx := context.Background()

	for _, id := range []string{"a@x.io", "5551234", "alice"} {
		got, err := f.auth.LoginWithPassword(ctx, id, "correct horse")
		if err != nil {
			t.Fatalf("login by %q: %v", id, err)
		}
		if got.ID != u.ID {
			t.Fatalf("login by %q returned wrong user", id)
		}
	}

	if _, err := f.auth.LoginWithPassword(ctx, "alice", "wrong password"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := f.auth.LoginWithPassword(ctx, "nobody", "correct horse"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}
}

func TestLoginWithPassword_NoHashAndBcrypt(t *testing.T) {
	f := newAuthFixture(t)
	seedUser(t, f.users, "otp@x.io", "", "", "")
	ctx := context.Background()
	if _, err := f.auth.LoginWithPassword(ctx, "otp@x.io", "anything1"); !errors.Is(err, services.ErrInvalidCredentials) {
		t.Fatalf("account without password: got %v", err)
	}

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	h := string(legacy)
	u := &models.User{ID: uuid.New(), Username: models.StringPtr("legacy"), Role: models.RoleCustomer, PasswordHash: &h}
	if err := f.users.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	if _, err := f.auth.LoginWithPassword(ctx, "legacy", "imported-pass"); err != nil {
		t.Fatalf("bcrypt login: %v", err)
	}
}

func TestLoginWithOtp_AutoProvisions(t *testing.T) {
	f := newAuthFixture(t, "482913", "482913")
	ctx := context.Background()

	if _, err := f.ledger.Issue(ctx, "5551234", models.ChannelSMS, models.PurposeLogin); err != nil {
		t.Fatalf("issue: %v", err)
	}
	u, err := f.auth.LoginWithOtp(ctx, "5551234", "482913")
	if err != nil {
		t.Fatalf("login with otp: %v", err)
	}
	if u.PhoneNumber() != "5551234" || u.Email != nil || u.Role != models.RoleCustomer {
		t.Fatalf("unexpected provisioned user %+v", u)
	}

	if _, err := f.auth.LoginWithOtp(ctx, "5551234", "482913"); !errors.Is(err, services.ErrInvalidOrExpiredCode) {
		t.Fatalf("replay: got %v", err)
	}

	if _, err := f.ledger.Issue(ctx, "5551234", models.ChannelSMS, models.PurposeLogin); err != nil {
		t.Fatal(err)
	}
	again, err := f.auth.LoginWithOtp(ctx, "5551234", "482913")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if again.ID != u.ID || f.users.Count() != 1 {
		t.Fatalf("second login must reuse the provisioned user")
	}
}

func TestLoginWithOtp_EmailTarget(t *testing.T) {
	f := newAuthFixture(t, "135790")
	ctx := context.Background()
	if _, err := f.ledger.Issue(ctx, "new@x.io", models.ChannelEmail, models.PurposeLogin); err != nil {
		t.Fatal(err)
	}
	u, err := f.auth.LoginWithOtp(ctx, "new@x.io", "135790")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.EmailAddress() != "new@x.io" || u.Phone != nil {
		t.Fatalf("expected email account, got %+v", u)
	}
}

func TestLoginWithOtp_ForgotCodeRejected(t *testing.T) {
	f := newAuthFixture(t, "246810")
	ctx := context.Background()
	if _, err := f.ledger.Issue(ctx, "a@x.io", models.ChannelEmail, models.PurposeForgot); err != nil {
		t.Fatal(err)
	}
	if _, err := f.auth.LoginWithOtp(ctx, "a@x.io", "246810"); !errors.Is(err, services.ErrInvalidOrExpiredCode) {
		t.Fatalf("forgot code must not sign in, got %v", err)
	}
	if f.users.Count() != 0 {
		t.Fatalf("no user may be provisioned on failure")
	}
}

func TestLoginWithIdentity(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	existing := seedUser(t, f.users, "a@x.io", "", "", "")

	linked, err := f.auth.LoginWithIdentity(ctx, models.IdentityAssertion{
		Provider: models.ProviderGoogle, Subject: "g-1", Email: "a@x.io", EmailVerified: true, Name: "Alice",
	})
	if err != nil {
		t.Fatalf("verified email login: %v", err)
	}
	if linked.ID != existing.ID {
		t.Fatalf("verified email must link to the existing user")
	}

	again, err := f.auth.LoginWithIdentity(ctx, models.IdentityAssertion{Provider: models.ProviderGoogle, Subject: "g-1"})
	if err != nil || again.ID != existing.ID {
		t.Fatalf("linked subject must resolve to the same user, err=%v", err)
	}

	other, err := f.auth.LoginWithIdentity(ctx, models.IdentityAssertion{
		Provider: models.ProviderGitHub, Subject: "gh-9", Email: "a@x.io", EmailVerified: false,
	})
	if err != nil {
		t.Fatalf("unverified email login: %v", err)
	}
	if other.ID == existing.ID {
		t.Fatalf("unverified email must not take over an account")
	}
	if other.Email != nil {
		t.Fatalf("unverified email must not be stored")
	}

	if _, err := f.auth.LoginWithIdentity(ctx, models.IdentityAssertion{Provider: models.ProviderGoogle}); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("missing subject: got %v", err)
	}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	u, err := f.auth.Register(ctx, services.SignupInput{Username: "Bob_1", Email: "bob@x.io", Password: "longenough"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if *u.Username != "bob_1" || !u.HasPassword() {
		t.Fatalf("unexpected user %+v", u)
	}
	for _, id := range []string{"bob_1", "Bob_1", "BOB_1"} {
		if _, err := f.auth.LoginWithPassword(ctx, id, "longenough"); err != nil {
			t.Fatalf("login as %q after register: %v", id, err)
		}
	}

	if _, err := f.auth.Register(ctx, services.SignupInput{Email: "bob@x.io", Password: "longenough"}); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("duplicate email: got %v", err)
	}

	var vErr *utils.ValidationError
	if _, err := f.auth.Register(ctx, services.SignupInput{Password: "longenough"}); !errors.As(err, &vErr) {
		t.Fatalf("no identifier: got %v", err)
	}
	if _, err := f.auth.Register(ctx, services.SignupInput{Username: "carol", Password: "short"}); !errors.As(err, &vErr) {
		t.Fatalf("short password: got %v", err)
	}
}

func TestAuthenticator_RecordsAudit(t *testing.T) {
	f := newAuthFixture(t)
	_, _ = f.auth.LoginWithPassword(context.Background(), "ghost", "whatever1")
	if len(f.audit.events) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(f.audit.events))
	}
	ev := f.audit.events[0]
	if ev.Success || ev.Strategy != services.StrategyPassword || ev.Subject != "ghost" {
		t.Fatalf("unexpected audit event %+v", ev)
	}
}
