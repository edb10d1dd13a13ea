package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"stemlab/internal/accounts"
	"stemlab/internal/api"
	"stemlab/internal/library"
	"stemlab/internal/logging"
	"stemlab/internal/mailer"
	"stemlab/internal/separation"
	"stemlab/internal/services"
	"stemlab/internal/testsupport"
	"stemlab/internal/verification"
)

type stubSeparation struct {
	lastFilename string
	lastModel    string
	result       separation.Result
	err          error
}

func (s *stubSeparation) DefaultModel() string { return "spleeter:4stems" }

func (s *stubSeparation) Process(_ context.Context, filename string, payload io.Reader, model string) (separation.Result, error) {
	s.lastFilename = filename
	s.lastModel = model
	_, _ = io.Copy(io.Discard, payload)
	if s.err != nil {
		return separation.Result{}, s.err
	}
	return s.result, nil
}

type fixture struct {
	server     *httptest.Server
	separation *stubSeparation
	codes      *verification.Cache
	accounts   *accounts.Store
	library    *library.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logging.NewNop()
	cfg := testsupport.NewConfig(t)
	accountStore := accounts.NewStore(cfg.Paths.AccountsPath, logger)
	libraryStore, err := library.NewStore(cfg.Paths.LibraryDir, logger)
	if err != nil {
		t.Fatalf("library.NewStore: %v", err)
	}
	codes := verification.NewCache()
	stub := &stubSeparation{result: separation.Result{
		Model: "spleeter:4stems",
		Stems: map[string]string{"vocals": "data:audio/wav;base64,AAAA"},
	}}

	srv, err := New(Options{
		Bind:       cfg.Paths.APIBind,
		Separation: stub,
		Accounts:   accountStore,
		Codes:      codes,
		Mailer:     mailer.New(cfg.SMTP, logger),
		Library:    libraryStore,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, separation: stub, codes: codes, accounts: accountStore, library: libraryStore}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func errorDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	return decodeBody[api.ErrorResponse](t, resp).Detail
}

func TestHealth(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	health := decodeBody[api.HealthResponse](t, resp)
	if health.Status != "ok" {
		t.Fatalf("status = %q", health.Status)
	}
}

func TestSeparateUpload(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "song.mp3")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte("mp3-bytes")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := form.WriteField("model", "spleeter:2stems"); err != nil {
		t.Fatalf("write model field: %v", err)
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}

	resp, err := http.Post(fx.server.URL+"/api/separate", form.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/separate: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	payload := decodeBody[api.SeparateResponse](t, resp)
	if payload.Model != "spleeter:4stems" {
		t.Fatalf("model = %q", payload.Model)
	}
	if _, ok := payload.Stems["vocals"]; !ok {
		t.Fatalf("stems = %v", payload.Stems)
	}
	if fx.separation.lastFilename != "song.mp3" || fx.separation.lastModel != "spleeter:2stems" {
		t.Fatalf("forwarded %q / %q", fx.separation.lastFilename, fx.separation.lastModel)
	}
}

func TestSeparateWithoutFile(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Post(fx.server.URL+"/api/separate", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Upload must include a file." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestSeparateUpstreamFailure(t *testing.T) {
	fx := newFixture(t)
	fx.separation.err = services.Wrap(services.ErrUpstream, "separation", "separate", "stem separation failed", nil)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "song.wav")
	_, _ = part.Write([]byte("bytes"))
	_ = form.Close()

	resp, err := http.Post(fx.server.URL+"/api/separate", form.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); !strings.Contains(detail, "stem separation failed") {
		t.Fatalf("detail = %q", detail)
	}
}

func TestRequestCodeRequiresEmail(t *testing.T) {
	fx := newFixture(t)
	resp := postJSON(t, fx.server.URL+"/api/auth/request-code", api.RequestCodeRequest{Email: "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Email is required." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestRequestCodeAcknowledges(t *testing.T) {
	fx := newFixture(t)
	resp := postJSON(t, fx.server.URL+"/api/auth/request-code", api.RequestCodeRequest{Email: "user@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	ack := decodeBody[api.OKResponse](t, resp)
	if !ack.OK {
		t.Fatal("expected ok acknowledgement")
	}
	if !fx.codes.Pending("user@example.com") {
		t.Fatal("expected a pending code")
	}
}

func TestVerifyFlow(t *testing.T) {
	fx := newFixture(t)
	code, err := fx.codes.Issue("User@Example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	resp := postJSON(t, fx.server.URL+"/api/auth/verify", api.VerifyRequest{
		Email:    "User@Example.com",
		Code:     code,
		Password: "hunter2",
		Name:     "Sam",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	summary := decodeBody[api.AccountSummary](t, resp)
	if summary.Email != "User@Example.com" || summary.Name != "Sam" {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.CreatedAt == "" || summary.UpdatedAt == "" {
		t.Fatalf("timestamps missing: %+v", summary)
	}

	record, ok := fx.accounts.Lookup("user@example.com")
	if !ok {
		t.Fatal("account not persisted")
	}
	if record.PasswordHash != accounts.HashPassword("hunter2") {
		t.Fatalf("hash = %q", record.PasswordHash)
	}

	// The code is single-use.
	resp = postJSON(t, fx.server.URL+"/api/auth/verify", api.VerifyRequest{
		Email:    "user@example.com",
		Code:     code,
		Password: "hunter2",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second redemption status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "No verification code requested for this email." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.codes.Issue("user@example.com"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	resp := postJSON(t, fx.server.URL+"/api/auth/verify", api.VerifyRequest{
		Email:    "user@example.com",
		Code:     "000000x",
		Password: "hunter2",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Invalid verification code." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestVerifyRequiresFields(t *testing.T) {
	fx := newFixture(t)
	resp := postJSON(t, fx.server.URL+"/api/auth/verify", api.VerifyRequest{Email: "user@example.com"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Email, code, and password are required." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestVerifyAcceptsPrecomputedHash(t *testing.T) {
	fx := newFixture(t)
	code, err := fx.codes.Issue("user@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	resp := postJSON(t, fx.server.URL+"/api/auth/verify", api.VerifyRequest{
		Email:        "user@example.com",
		Code:         code,
		PasswordHash: "cafe1234",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	record, ok := fx.accounts.Lookup("user@example.com")
	if !ok || record.PasswordHash != "cafe1234" {
		t.Fatalf("record = %+v (ok=%v)", record, ok)
	}
}

func TestLibraryRoundTripOverHTTP(t *testing.T) {
	fx := newFixture(t)
	stem := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString([]byte("wav-bytes"))

	resp := postJSON(t, fx.server.URL+"/api/library", api.SaveSessionRequest{
		Title: "Take One",
		Stems: map[string]string{"vocals": stem},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	meta := decodeBody[api.SessionMetadata](t, resp)
	if meta.ID == "" || meta.Title != "Take One" {
		t.Fatalf("metadata = %+v", meta)
	}
	if meta.Bundle != "/api/library/"+meta.ID+"/bundle" {
		t.Fatalf("bundle ref = %q", meta.Bundle)
	}

	listResp, err := http.Get(fx.server.URL + "/api/library")
	if err != nil {
		t.Fatalf("GET /api/library: %v", err)
	}
	listing := decodeBody[api.LibraryListResponse](t, listResp)
	if len(listing.Items) != 1 || listing.Items[0].ID != meta.ID {
		t.Fatalf("listing = %+v", listing)
	}

	getResp, err := http.Get(fx.server.URL + "/api/library/" + meta.ID)
	if err != nil {
		t.Fatalf("GET session: %v", err)
	}
	session := decodeBody[api.SessionDetail](t, getResp)
	if session.Stems["vocals"] != stem {
		t.Fatalf("stem payload = %q", session.Stems["vocals"])
	}

	bundleResp, err := http.Get(fx.server.URL + meta.Bundle)
	if err != nil {
		t.Fatalf("GET bundle: %v", err)
	}
	defer bundleResp.Body.Close()
	if bundleResp.StatusCode != http.StatusOK {
		t.Fatalf("bundle status = %d", bundleResp.StatusCode)
	}
	if ct := bundleResp.Header.Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := bundleResp.Header.Get("Content-Disposition"); !strings.Contains(cd, meta.ID+".zip") {
		t.Fatalf("content disposition = %q", cd)
	}
	body, err := io.ReadAll(bundleResp.Body)
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	if !bytes.HasPrefix(body, []byte("PK")) {
		t.Fatal("bundle is not a zip archive")
	}
}

func TestLibrarySaveRequiresStems(t *testing.T) {
	fx := newFixture(t)
	resp := postJSON(t, fx.server.URL+"/api/library", api.SaveSessionRequest{Title: "Empty"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Payload must include stems" {
		t.Fatalf("detail = %q", detail)
	}
}

func TestLibraryGetUnknownSession(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.server.URL + "/api/library/doesnotexist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Session not found." {
		t.Fatalf("detail = %q", detail)
	}
}

func TestBundleUnknownSession(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.server.URL + "/api/library/doesnotexist/bundle")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if detail := errorDetail(t, resp); detail != "Bundle not found" {
		t.Fatalf("detail = %q", detail)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	fx := newFixture(t)
	resp, err := http.Get(fx.server.URL + "/api/separate")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
