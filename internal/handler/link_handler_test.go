package handler

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
)

func TestCreateLinkValidatesInput(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := perform(env.api.CreateLink, user.ID, http.MethodPost, "/api/dashboard/links", gin.H{"title": "Blog", "url": "ftp://example.com"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid url, got %d", w.Code)
	}

	w = perform(env.api.CreateLink, user.ID, http.MethodPost, "/api/dashboard/links", []byte("{"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", w.Code)
	}

	w = perform(env.api.CreateLink, user.ID, http.MethodPost, "/api/dashboard/links", gin.H{"title": "Blog", "url": "https://blog.example.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	link := decodeBody(t, w)["link"].(map[string]interface{})
	if link["order"] != float64(0) || link["isVisible"] != true {
		t.Fatalf("unexpected link payload %#v", link)
	}
}

func TestLinkLifecycle(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	first, err := env.api.links.Add(user.ID, "First", "https://one.example.com")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	second, err := env.api.links.Add(user.ID, "Second", "https://two.example.com")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	firstID := gin.Param{Key: "id", Value: strconv.Itoa(int(first.ID))}

	w := perform(env.api.UpdateLink, user.ID, http.MethodPut, "/api/dashboard/links/"+firstID.Value, gin.H{"title": "Renamed", "url": "https://renamed.example.com"}, firstID)
	if w.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", w.Code, w.Body.String())
	}

	w = perform(env.api.ToggleLink, user.ID, http.MethodPost, "/api/dashboard/links/"+firstID.Value+"/toggle", nil, firstID)
	if w.Code != http.StatusOK {
		t.Fatalf("toggle failed: %d", w.Code)
	}

	w = perform(env.api.ReorderLinks, user.ID, http.MethodPost, "/api/dashboard/links/reorder", gin.H{"items": []gin.H{
		{"id": first.ID, "newOrder": 1},
		{"id": second.ID, "newOrder": 0},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("reorder failed: %d %s", w.Code, w.Body.String())
	}

	w = perform(env.api.ListLinks, user.ID, http.MethodGet, "/api/dashboard/links", nil)
	links := decodeBody(t, w)["links"].([]interface{})
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	top := links[0].(map[string]interface{})
	bottom := links[1].(map[string]interface{})
	if top["title"] != "Second" || bottom["title"] != "Renamed" || bottom["isVisible"] != false {
		t.Fatalf("unexpected links after edits: %#v", links)
	}

	w = perform(env.api.DeleteLink, user.ID, http.MethodDelete, "/api/dashboard/links/"+firstID.Value, nil, firstID)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d", w.Code)
	}
	var count int64
	env.db.Model(&db.Link{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 link left, got %d", count)
	}
}

func TestReorderLinksRejectsNegativeOrder(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := perform(env.api.ReorderLinks, user.ID, http.MethodPost, "/api/dashboard/links/reorder", gin.H{"items": []gin.H{{"id": 1, "newOrder": -1}}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestLinkHandlersRejectInvalidID(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := perform(env.api.DeleteLink, user.ID, http.MethodDelete, "/api/dashboard/links/abc", nil, gin.Param{Key: "id", Value: "abc"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUpdateForeignLinkIsSilentNoop(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	foreign := db.Link{UserID: "someone-else", Title: "Theirs", URL: "https://theirs.example.com", IsVisible: true}
	if err := env.db.Create(&foreign).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	id := gin.Param{Key: "id", Value: strconv.Itoa(int(foreign.ID))}

	w := perform(env.api.UpdateLink, user.ID, http.MethodPut, "/api/dashboard/links/"+id.Value, gin.H{"title": "Mine", "url": "https://mine.example.com"}, id)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stored db.Link
	env.db.First(&stored, foreign.ID)
	if stored.Title != "Theirs" {
		t.Fatalf("foreign link should be untouched, got %q", stored.Title)
	}
}
