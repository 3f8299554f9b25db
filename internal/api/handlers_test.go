package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/bilgisen/folio/internal/bulk"
	"github.com/bilgisen/folio/internal/cache"
	"github.com/bilgisen/folio/internal/media"
	"github.com/bilgisen/folio/internal/models"
	"github.com/bilgisen/folio/internal/publishing"
	"github.com/bilgisen/folio/internal/repository"
	"github.com/bilgisen/folio/internal/slug"
	"github.com/bilgisen/folio/internal/store"
	"github.com/bilgisen/folio/internal/translation"
	"github.com/bilgisen/folio/internal/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminKey = "admin-secret"

type echoProvider struct{}

func (echoProvider) Translate(_ context.Context, req translation.Request) (translation.Result, error) {
	return translation.Result{Text: "[" + req.TargetLocale + "] " + req.Text, Status: translation.StatusTranslated}, nil
}

type fakeUploader struct {
	got []byte
}

func (f *fakeUploader) Upload(_ context.Context, contentType string, size int64, body io.Reader) (string, error) {
	if contentType != "image/png" {
		return "", media.ErrUnsupportedType
	}
	f.got, _ = io.ReadAll(body)
	return "https://media.example.com/posts/x.png", nil
}

type testApp struct {
	app      *fiber.App
	repo     *repository.Repository
	uploader *fakeUploader
	cache    *cache.MemoryClient
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zerolog.Nop()
	gate := validation.NewGate()
	repo := repository.New(store.NewRedisCollection(client, "test:"), gate, log)
	resolver := slug.NewResolver(repo, log)
	translator := translation.NewTranslator(echoProvider{}, []string{"tr", "en"}, 2, log)
	uploader := &fakeUploader{}
	mem := cache.NewMemoryClient()

	h := NewHandlers(Deps{
		Repo:     repo,
		Service:  publishing.NewService(repo, resolver, gate, translator, "tr", log),
		Resolver: resolver,
		Operator: bulk.NewOperator(repo, gate, 4, log),
		Uploader: uploader,
		Cache:    mem,
		Log:      log,
	})

	app := NewApp(fiber.Config{})
	SetupRoutes(app, h, adminKey)
	return &testApp{app: app, repo: repo, uploader: uploader, cache: mem}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, admin bool) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-API-Key", adminKey)
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func postBody(title string, words int, publish bool) map[string]interface{} {
	return map[string]interface{}{
		"post": map[string]interface{}{
			"title":        title,
			"content":      "<p>" + strings.TrimSpace(strings.Repeat("kelime ", words)) + "</p>",
			"excerpt":      "Özet",
			"image":        "https://cdn.example.com/a.png",
			"author":       map[string]string{"id": "u1", "name": "Can"},
			"is_published": publish,
		},
	}
}

func TestHealth(t *testing.T) {
	a := newTestApp(t)
	resp, body := a.do(t, http.MethodGet, "/api/v1/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAdminRequiresKey(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.do(t, http.MethodGet, "/admin/posts", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.Header.Set("X-API-Key", "wrong")
	r, err := a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, r.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.Header.Set("Authorization", "Bearer "+adminKey)
	r, err = a.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, r.StatusCode)
}

func TestCreateAndReadPublishedPost(t *testing.T) {
	a := newTestApp(t)

	body := postBody("Merhaba Dünya", 60, true)
	body["translate"] = true
	resp, created := a.do(t, http.MethodPost, "/admin/posts", body, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, created)

	post := created["post"].(map[string]interface{})
	assert.Equal(t, "merhaba-dunya", post["slug"])
	assert.Equal(t, "published", post["state"])

	resp, list := a.do(t, http.MethodGet, "/api/v1/posts?locale=en", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), list["total"])
	item := list["items"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "[en] Merhaba Dünya", item["title"])

	resp, got := a.do(t, http.MethodGet, "/api/v1/posts/merhaba-dunya", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Merhaba Dünya", got["title"])
	assert.Equal(t, float64(1), got["views"])

	resp, liked := a.do(t, http.MethodPost, "/api/v1/posts/merhaba-dunya/like", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), liked["likes"])
}

func TestDraftIsHiddenFromPublicAPI(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.do(t, http.MethodPost, "/admin/posts", postBody("Taslak yazı", 12, false), true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/posts/taslak-yazi", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidationFailure(t *testing.T) {
	a := newTestApp(t)

	resp, body := a.do(t, http.MethodPost, "/admin/posts", postBody("Kısa içerik", 20, true), true)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].([]interface{})
	require.Len(t, fields, 1)
	assert.Equal(t, "content", fields[0].(map[string]interface{})["field"])
}

func TestCreateRequiresAuthor(t *testing.T) {
	a := newTestApp(t)
	body := postBody("Yazarsız", 12, false)
	delete(body["post"].(map[string]interface{}), "author")

	resp, out := a.do(t, http.MethodPost, "/admin/posts", body, true)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := out["fields"].([]interface{})
	assert.Equal(t, "post.author.id", fields[0].(map[string]interface{})["field"])
}

func TestPatchAndDelete(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	p, err := a.repo.Create(ctx, models.NewPost{
		Title: "Var olan", Content: "<p>içerik</p>", Excerpt: "e", Slug: "var-olan",
		Author: models.Author{ID: "u", Name: "n"},
	})
	require.NoError(t, err)

	resp, patched := a.do(t, http.MethodPatch, "/admin/posts/"+p.ID, map[string]interface{}{"is_archived": true}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "archived", patched["state"])

	resp, _ = a.do(t, http.MethodPatch, "/admin/posts/"+p.ID, map[string]interface{}{}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodPatch, "/admin/posts/"+p.ID, map[string]interface{}{"slug": "Bad Slug"}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = a.do(t, http.MethodDelete, "/admin/posts/"+p.ID, nil, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/admin/posts/"+p.ID, nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSlugEndpoints(t *testing.T) {
	a := newTestApp(t)

	resp, body := a.do(t, http.MethodGet, "/api/v1/slugs/derive?title="+url.QueryEscape("Şişli Gezisi"), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sisli-gezisi", body["slug"])

	_, err := a.repo.Create(context.Background(), models.NewPost{
		Title: "Şişli Gezisi", Content: "c", Excerpt: "e", Slug: "sisli-gezisi",
		Author: models.Author{ID: "u", Name: "n"},
	})
	require.NoError(t, err)

	resp, body = a.do(t, http.MethodGet, "/api/v1/slugs/available?slug=sisli-gezisi", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["available"])
	assert.Equal(t, "sisli-gezisi-1", body["suggestion"])

	resp, _ = a.do(t, http.MethodGet, "/api/v1/slugs/available?slug=No", nil, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	a := newTestApp(t)
	body := postBody("Doğrulama", 20, false)
	body["publish"] = true
	body["post"].(map[string]interface{})["slug"] = "dogrulama"

	resp, out := a.do(t, http.MethodPost, "/admin/posts/validate", body, true)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["is_valid"])
	assert.Equal(t, "publish", out["tier"])
}

func TestBulkEndpoint(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	p, err := a.repo.Create(ctx, models.NewPost{
		Title: "Toplu iş", Content: "c", Excerpt: "e", Slug: "toplu-is",
		Author: models.Author{ID: "u", Name: "n"},
	})
	require.NoError(t, err)

	resp, out := a.do(t, http.MethodPost, "/admin/posts/bulk", map[string]interface{}{
		"ids":    []string{p.ID, "missing"},
		"action": "favorite",
	}, true)

	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	assert.Equal(t, true, out["value"])
	assert.Equal(t, []interface{}{p.ID}, out["succeeded"])
	failed := out["failed"].([]interface{})
	require.Len(t, failed, 1)
	assert.Equal(t, "missing", failed[0].(map[string]interface{})["id"])

	resp, _ = a.do(t, http.MethodPost, "/admin/posts/bulk", map[string]interface{}{
		"ids":    []string{p.ID},
		"action": "explode",
	}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTranslateEndpoint(t *testing.T) {
	a := newTestApp(t)

	p, err := a.repo.Create(context.Background(), models.NewPost{
		Title: "Çeviri", Content: "<p>metin</p>", Excerpt: "özet", Slug: "ceviri",
		Author: models.Author{ID: "u", Name: "n"},
	})
	require.NoError(t, err)

	resp, out := a.do(t, http.MethodPost, "/admin/posts/"+p.ID+"/translate", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	post := out["post"].(map[string]interface{})
	translations := post["translations"].(map[string]interface{})
	assert.Equal(t, "[en] Çeviri", translations["en"].(map[string]interface{})["title"])
}

func TestUploadMedia(t *testing.T) {
	a := newTestApp(t)

	upload := func(contentType string) *http.Response {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="cover.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = part.Write([]byte("png-bytes"))
		require.NoError(t, w.Close())

		req := httptest.NewRequest(http.MethodPost, "/admin/media", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())
		req.Header.Set("X-API-Key", adminKey)
		resp, err := a.app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	resp := upload("image/png")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "png-bytes", string(a.uploader.got))

	resp = upload("application/pdf")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestUnknownEndpoint(t *testing.T) {
	a := newTestApp(t)
	resp, body := a.do(t, http.MethodGet, "/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Endpoint not found", body["error"])
}

func TestPatchPublishRunsPublishGate(t *testing.T) {
	a := newTestApp(t)

	p, err := a.repo.Create(context.Background(), models.NewPost{
		Title: "Kısa taslak", Content: "<p>three tiny words</p>", Excerpt: "e", Slug: "short-draft",
		Author: models.Author{ID: "u", Name: "n"},
	})
	require.NoError(t, err)

	resp, body := a.do(t, http.MethodPatch, "/admin/posts/"+p.ID, map[string]interface{}{"is_published": true}, true)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	fields := map[string]bool{}
	for _, f := range body["fields"].([]interface{}) {
		fields[f.(map[string]interface{})["field"].(string)] = true
	}
	assert.True(t, fields["content"])
	assert.True(t, fields["image"])

	resp, _ = a.do(t, http.MethodGet, "/api/v1/posts/short-draft", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicListingHidesArchived(t *testing.T) {
	a := newTestApp(t)

	for _, title := range []string{"Açık yazı", "Arşiv yazısı"} {
		resp, _ := a.do(t, http.MethodPost, "/admin/posts", postBody(title, 60, true), true)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	archived, err := a.repo.GetBySlug(context.Background(), "arsiv-yazisi", "")
	require.NoError(t, err)
	resp, _ := a.do(t, http.MethodPatch, "/admin/posts/"+archived.ID, map[string]interface{}{"is_archived": true}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, list := a.do(t, http.MethodGet, "/api/v1/posts", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), list["total"])
	items := list["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "acik-yazi", items[0].(map[string]interface{})["slug"])

	// the admin listing still has both
	resp, all := a.do(t, http.MethodGet, "/admin/posts", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), all["total"])
}

func TestClearTranslationCache(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.cache.Set(ctx, "k", "v", 0))

	resp, _ := a.do(t, http.MethodDelete, "/admin/translations/cache", nil, true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ok, err := a.cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
