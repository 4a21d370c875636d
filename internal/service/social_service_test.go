package service

import (
	"errors"
	"strings"
	"testing"
)

func TestSocialServiceUpsertAndList(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSocialService(gdb)

	err := svc.Upsert("u1", []SocialInput{
		{Platform: "github", Value: "octocat"},
		{Platform: "instagram", Value: "https://instagram.com/x", IsVisible: boolPtr(false)},
		{Platform: "twitter", Value: ""},
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	items, err := svc.List("u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 socials, got %d", len(items))
	}
	if items[0].Platform != "github" || items[0].Order != 0 || !items[0].IsVisible {
		t.Fatalf("unexpected first social: %#v", items[0])
	}
	if items[1].Platform != "instagram" || items[1].Order != 1 || items[1].IsVisible {
		t.Fatalf("unexpected second social: %#v", items[1])
	}
}

func TestSocialServiceUpsertUpdatesExistingPlatform(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSocialService(gdb)

	if err := svc.Upsert("u1", []SocialInput{{Platform: "github", Value: "octocat"}}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := svc.Upsert("u1", []SocialInput{{Platform: "github", Value: "hubot", Order: intPtr(4), IsVisible: boolPtr(false)}}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	items, _ := svc.List("u1")
	if len(items) != 1 {
		t.Fatalf("expected a single github row, got %d", len(items))
	}
	if items[0].Value != "hubot" || items[0].Order != 4 || items[0].IsVisible {
		t.Fatalf("unexpected row after update: %#v", items[0])
	}
}

func TestSocialServiceEmptyValueDeletesRow(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSocialService(gdb)

	if err := svc.Upsert("u1", []SocialInput{{Platform: "github", Value: "octocat"}, {Platform: "youtube", Value: "@channel"}}); err != nil {
		t.Fatalf("seed upsert failed: %v", err)
	}
	if err := svc.Upsert("u1", []SocialInput{{Platform: "github", Value: "  "}}); err != nil {
		t.Fatalf("clearing upsert failed: %v", err)
	}

	items, _ := svc.List("u1")
	if len(items) != 1 || items[0].Platform != "youtube" {
		t.Fatalf("expected only youtube to remain, got %#v", items)
	}
}

func TestSocialServiceRejectsInvalidValuesAtomically(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSocialService(gdb)

	err := svc.Upsert("u1", []SocialInput{
		{Platform: "github", Value: "octocat"},
		{Platform: "instagram", Value: "https://twitter.com/x"},
		{Platform: "linkedin", Value: "https://example.com/in/me"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Instagram value is invalid") {
		t.Fatalf("expected error to name the first offending platform, got %v", err)
	}

	items, _ := svc.List("u1")
	if len(items) != 0 {
		t.Fatalf("expected nothing persisted after validation failure, got %d", len(items))
	}

	if err := svc.Upsert("u1", []SocialInput{{Platform: "myspace", Value: "tom"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unsupported platform, got %v", err)
	}
}

func TestSocialServiceReorderAndClear(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSocialService(gdb)

	_ = svc.Upsert("u1", []SocialInput{{Platform: "github", Value: "octocat"}, {Platform: "tiktok", Value: "dancer"}})
	_ = svc.Upsert("u2", []SocialInput{{Platform: "github", Value: "other"}})

	if err := svc.Reorder("u1", []SocialOrder{{Platform: "tiktok", Order: 0}, {Platform: "github", Order: 1}}); err != nil {
		t.Fatalf("reorder failed: %v", err)
	}
	items, _ := svc.List("u1")
	if items[0].Platform != "tiktok" || items[1].Platform != "github" {
		t.Fatalf("unexpected order after reorder: %s, %s", items[0].Platform, items[1].Platform)
	}

	if err := svc.Clear("u1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if items, _ := svc.List("u1"); len(items) != 0 {
		t.Fatalf("expected no socials after clear, got %d", len(items))
	}
	if items, _ := svc.List("u2"); len(items) != 1 {
		t.Fatal("clear must not touch other users")
	}
}
