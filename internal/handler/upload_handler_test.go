package handler

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/linkbio/internal/db"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func uploadAvatar(api *API, userID, objectKey, contentType string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		_ = writer.WriteField(key, value)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="avatar"`)
	header.Set("Content-Type", contentType)
	part, _ := writer.CreatePart(header)
	_, _ = part.Write(data)
	_ = writer.Close()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/dashboard/avatars/upload?key="+url.QueryEscape(objectKey), &body)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())
	c.Set(sessionUserKey, userID)
	api.UploadAvatar(c)
	return w
}

func authorizeKey(t *testing.T, api *API, userID, contentType string, size int) map[string]interface{} {
	t.Helper()

	w := perform(api.AuthorizeAvatarUpload, userID, http.MethodPost, "/api/dashboard/avatars/authorize", gin.H{"contentType": contentType, "size": size})
	if w.Code != http.StatusOK {
		t.Fatalf("authorize failed: %d %s", w.Code, w.Body.String())
	}
	return decodeBody(t, w)
}

func TestAuthorizeAvatarUploadLocalMode(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	target := authorizeKey(t, env.api, user.ID, "image/png", 1024)
	key, _ := target["objectKey"].(string)
	if !strings.HasPrefix(key, "media/avatars/"+user.ID+"/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected object key %q", key)
	}
	if target["uploadMethod"] != "POST" || target["requiresFinalize"] != false {
		t.Fatalf("unexpected upload target %#v", target)
	}
	if target["uploadUrl"] != "/api/dashboard/avatars/upload?key="+url.QueryEscape(key) {
		t.Fatalf("unexpected upload url %v", target["uploadUrl"])
	}

	w := perform(env.api.AuthorizeAvatarUpload, user.ID, http.MethodPost, "/api/dashboard/avatars/authorize", gin.H{"contentType": "image/gif", "size": 10})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for gif, got %d", w.Code)
	}
	w = perform(env.api.AuthorizeAvatarUpload, user.ID, http.MethodPost, "/api/dashboard/avatars/authorize", gin.H{"contentType": "application/pdf", "size": 10})
	if w.Code != http.StatusBadRequest || decodeBody(t, w)["error"] != "Only image uploads are allowed" {
		t.Fatalf("expected 400 for pdf, got %d %s", w.Code, w.Body.String())
	}
	w = perform(env.api.AuthorizeAvatarUpload, user.ID, http.MethodPost, "/api/dashboard/avatars/authorize", gin.H{"contentType": "image/png", "size": 11 << 20})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized upload, got %d", w.Code)
	}
}

func TestFinalizeRejectedInLocalMode(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := perform(env.api.FinalizeAvatarUpload, user.ID, http.MethodPost, "/api/dashboard/avatars/finalize", gin.H{"objectKey": "media/avatars/" + user.ID + "/x.png"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadAvatarStoresFileAndActivates(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	data := pngBytes(t, 40, 30)
	key := authorizeKey(t, env.api, user.ID, "image/png", len(data))["objectKey"].(string)

	w := uploadAvatar(env.api, user.ID, key, "image/png", data, map[string]string{
		"x": "5", "y": "5", "width": "20", "height": "20", "zoom": "1.5",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}
	avatar := decodeBody(t, w)["avatar"].(map[string]interface{})
	if avatar["url"] != "/"+key {
		t.Fatalf("unexpected avatar url %v", avatar["url"])
	}

	stored, err := os.ReadFile(filepath.Join(env.root, filepath.FromSlash(key)))
	if err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(stored))
	if err != nil {
		t.Fatalf("stored file is not a png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
		t.Fatalf("expected 20x20 crop, got %v", b)
	}

	var profile db.Profile
	env.db.Where("user_id = ?", user.ID).First(&profile)
	if profile.AvatarURL == nil || *profile.AvatarURL != "/"+key {
		t.Fatalf("expected avatar to be active, got %v", profile.AvatarURL)
	}
}

func TestUploadAvatarRejectsForeignKey(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := uploadAvatar(env.api, user.ID, "media/avatars/other-user/evil.png", "image/png", pngBytes(t, 4, 4), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = uploadAvatar(env.api, user.ID, "media/avatars/"+user.ID+"/../other/evil.png", "image/png", pngBytes(t, 4, 4), nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for traversal, got %d", w.Code)
	}
}

func TestUploadAvatarRejectsPartialCrop(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	w := uploadAvatar(env.api, user.ID, "media/avatars/"+user.ID+"/a.png", "image/png", pngBytes(t, 4, 4), map[string]string{"x": "1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAvatarActivateClearAndDelete(t *testing.T) {
	env := setupHandlerTest(t)
	user := env.seedAdmin(t)

	key := "media/avatars/" + user.ID + "/a.png"
	w := uploadAvatar(env.api, user.ID, key, "image/png", pngBytes(t, 4, 4), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("upload failed: %d %s", w.Code, w.Body.String())
	}
	id := gin.Param{Key: "id", Value: strconv.Itoa(int(decodeBody(t, w)["avatar"].(map[string]interface{})["id"].(float64)))}

	w = perform(env.api.ClearAvatar, user.ID, http.MethodPost, "/api/dashboard/avatars/clear", gin.H{"confirmed": false})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", w.Code)
	}
	w = perform(env.api.ClearAvatar, user.ID, http.MethodPost, "/api/dashboard/avatars/clear", gin.H{"confirmed": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = perform(env.api.ActivateAvatar, user.ID, http.MethodPost, "/api/dashboard/avatars/"+id.Value+"/activate", nil, id)
	if w.Code != http.StatusOK || decodeBody(t, w)["avatarUrl"] != "/"+key {
		t.Fatalf("activate failed: %d %s", w.Code, w.Body.String())
	}

	missing := gin.Param{Key: "id", Value: "9999"}
	if w = perform(env.api.ActivateAvatar, user.ID, http.MethodPost, "/", nil, missing); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing avatar, got %d", w.Code)
	}

	w = perform(env.api.DeleteAvatar, user.ID, http.MethodDelete, "/api/dashboard/avatars/"+id.Value, nil, id)
	if w.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", w.Code, w.Body.String())
	}
	if _, err := os.Stat(filepath.Join(env.root, filepath.FromSlash(key))); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}

	var profile db.Profile
	env.db.Where("user_id = ?", user.ID).First(&profile)
	if profile.AvatarURL != nil {
		t.Fatalf("expected avatar url cleared, got %v", *profile.AvatarURL)
	}

	w = perform(env.api.ListAvatars, user.ID, http.MethodGet, "/api/dashboard/avatars", nil)
	if avatars := decodeBody(t, w)["avatars"].([]interface{}); len(avatars) != 0 {
		t.Fatalf("expected empty library, got %#v", avatars)
	}
}
