package service

import (
	"errors"
	"testing"

	"github.com/linkbio/internal/db"
)

func TestUserServiceCreateAdminCreatesProfile(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewUserService(gdb)

	has, err := svc.HasAdmin()
	if err != nil || has {
		t.Fatalf("expected no admin initially, got %v (err=%v)", has, err)
	}

	user, err := svc.CreateAdmin("Jane Doe", "Jane@Example.com", "correct-horse")
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if user.ID == "" || user.Email != "jane@example.com" {
		t.Fatalf("unexpected user: %#v", user)
	}
	if user.Password == "correct-horse" {
		t.Fatal("password must be stored hashed")
	}

	var profile db.Profile
	if err := gdb.Where("user_id = ?", user.ID).First(&profile).Error; err != nil {
		t.Fatalf("expected initial profile: %v", err)
	}
	if profile.Username != "jane-doe" || profile.Bio == nil || *profile.Bio != "Welcome to my LinkBio!" {
		t.Fatalf("unexpected initial profile: %#v", profile)
	}

	if has, _ := svc.HasAdmin(); !has {
		t.Fatal("expected admin to exist")
	}
}

func TestUserServiceCreateAdminOnlyOnce(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewUserService(gdb)

	if _, err := svc.CreateAdmin("Jane", "jane@example.com", "correct-horse"); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	_, err := svc.CreateAdmin("Mallory", "mallory@example.com", "correct-horse")
	if !errors.Is(err, ErrAdminExists) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}

	var count int64
	gdb.Model(&db.User{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one user, got %d", count)
	}
}

func TestUserServiceCreateAdminValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewUserService(gdb)

	cases := []struct{ name, email, password string }{
		{"", "a@example.com", "long-enough"},
		{"A", "not-an-email", "long-enough"},
		{"A", "a@example.com", "short"},
	}
	for _, tc := range cases {
		if _, err := svc.CreateAdmin(tc.name, tc.email, tc.password); !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", tc, err)
		}
	}
}

func TestUserServiceAuthenticate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewUserService(gdb)

	created, err := svc.CreateAdmin("Jane", "jane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	user, err := svc.Authenticate(" JANE@example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user.ID != created.ID {
		t.Fatalf("authenticated wrong user %q", user.ID)
	}

	if _, err := svc.Authenticate("jane@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate("nobody@example.com", "correct-horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestUserServiceDeleteAccountRemovesEverything(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewUserService(gdb)

	user, err := svc.CreateAdmin("Jane", "jane@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if _, err := NewLinkService(gdb).Add(user.ID, "Blog", "https://example.com"); err != nil {
		t.Fatalf("add link failed: %v", err)
	}
	_ = NewSocialService(gdb).Upsert(user.ID, []SocialInput{{Platform: "github", Value: "jane"}})
	_ = NewDesignService(gdb).Upsert(user.ID, map[string]*string{"text.color": strPtr("#fff")})
	gdb.Create(&db.Avatar{UserID: user.ID, ObjectKey: "avatars/" + user.ID + "/a.png", URL: "/a.png"})

	if err := svc.DeleteAccount(user.ID); err != nil {
		t.Fatalf("delete account failed: %v", err)
	}

	for _, model := range []interface{}{&db.User{}, &db.Profile{}, &db.Link{}, &db.Social{}, &db.DesignAttribute{}, &db.Avatar{}} {
		var count int64
		gdb.Model(model).Count(&count)
		if count != 0 {
			t.Fatalf("expected %T table empty, got %d rows", model, count)
		}
	}

	if has, _ := svc.HasAdmin(); has {
		t.Fatal("setup should be available again after deleting the account")
	}
}
