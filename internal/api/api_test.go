package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"voice-negotiator-go/internal/customers"
	"voice-negotiator-go/internal/logger"
	"voice-negotiator-go/internal/session"
	"voice-negotiator-go/internal/types"
)

type fakeInteractor struct {
	store     *session.Store
	customer  *types.CustomerProfile
	calls     int
	uploaded  string
	audioText string
	audioErr  error
}

func (f *fakeInteractor) Interact(_ context.Context, input string, c *types.CustomerProfile) (types.InteractionResult, error) {
	f.calls++
	f.customer = c
	f.store.AppendExchange(input, "respuesta")
	path := "/static/audio/a.mp3"
	return types.InteractionResult{Text: "respuesta", AudioPath: &path, SentimentAnalysis: "ok"}, nil
}

func (f *fakeInteractor) InteractAudio(ctx context.Context, audioPath string, c *types.CustomerProfile) (types.InteractionResult, error) {
	data, _ := os.ReadFile(audioPath)
	f.uploaded = string(data)
	if f.audioErr != nil {
		return types.InteractionResult{}, f.audioErr
	}
	res, err := f.Interact(ctx, f.audioText, c)
	res.UserText = f.audioText
	return res, err
}

type testServer struct {
	h   *Handler
	mux *http.ServeMux
	fi  *fakeInteractor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir, err := customers.New(customers.Seed())
	if err != nil {
		t.Fatal(err)
	}
	store := session.New()
	fi := &fakeInteractor{store: store, audioText: "Quiero pagar"}
	h := &Handler{
		Customers: dir,
		Pipeline:  fi,
		Session:   store,
		Log:       logger.NewWithOutput(io.Discard, "test", "error"),
	}
	return &testServer{h: h, mux: NewRouter(h), fi: fi}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestListCustomers(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/clientes", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Monto_Deuda":"$1,000,000.00"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	got := decode[[]types.CustomerSummary](t, rec)
	if len(got) != 3 || got[1].Name != "María López" {
		t.Errorf("customers = %+v", got)
	}
}

func TestGetCustomer(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/cliente/1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	p := decode[types.CustomerProfile](t, rec)
	if p.Name != "Luis Guillermo Pardo" || p.DebtAmount != 1000000 || len(p.PaymentHistory) != 2 {
		t.Errorf("profile = %+v", p)
	}

	for _, path := range []string{"/cliente/999", "/cliente/abc"} {
		rec := s.do(t, http.MethodGet, path, nil, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d", path, rec.Code)
		}
		if got := decode[map[string]string](t, rec); got["error"] != "Cliente no encontrado" {
			t.Errorf("%s error = %q", path, got["error"])
		}
	}
}

func TestInteract(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"numeric id", `{"input":"Hola","cliente_id":1}`},
		{"string id", `{"input":"Hola","cliente_id":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, "/interact", strings.NewReader(tt.body), "application/json")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
			}
			res := decode[map[string]any](t, rec)
			if res["text"] != "respuesta" || res["audio_path"] != "/static/audio/a.mp3" {
				t.Errorf("result = %v", res)
			}
			if _, present := res["user_text"]; present {
				t.Error("user_text should be omitted for text input")
			}
			if s.fi.customer == nil || s.fi.customer.ID != 1 {
				t.Errorf("customer = %+v", s.fi.customer)
			}
		})
	}
}

func TestInteractValidation(t *testing.T) {
	bodies := []string{
		`{"input":"","cliente_id":1}`,
		`{"input":"   ","cliente_id":1}`,
		`{"input":"Hola"}`,
		`{"input":"Hola","cliente_id":""}`,
		`{"input":"Hola","cliente_id":0}`,
		`{"input":"Hola","cliente_id":"abc"}`,
		`{"input":"Hola","cliente_id":null}`,
		`not json`,
	}
	for _, body := range bodies {
		s := newTestServer(t)
		rec := s.do(t, http.MethodPost, "/interact", strings.NewReader(body), "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, rec.Code)
			continue
		}
		if got := decode[map[string]string](t, rec); got["error"] != msgMissingFields {
			t.Errorf("%s: error = %q", body, got["error"])
		}
		if s.fi.calls != 0 || s.h.Session.Len() != 0 {
			t.Errorf("%s: side effects performed", body)
		}
	}
}

func TestInteractUnknownCustomer(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/interact", strings.NewReader(`{"input":"Hola","cliente_id":42}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("lenient lookup status = %d", rec.Code)
	}
	if s.fi.customer != nil {
		t.Errorf("customer should be nil, got %+v", s.fi.customer)
	}

	s = newTestServer(t)
	s.h.StrictCustomerLookup = true
	rec = s.do(t, http.MethodPost, "/interact", strings.NewReader(`{"input":"Hola","cliente_id":42}`), "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("strict lookup status = %d", rec.Code)
	}
	if s.fi.calls != 0 {
		t.Error("pipeline should not run for unknown customer in strict mode")
	}
}

func multipartBody(t *testing.T, fields map[string]string, audio []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if audio != nil {
		fw, err := mw.CreateFormFile("audio", "grabacion.webm")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(audio)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestAudioInteract(t *testing.T) {
	s := newTestServer(t)
	body, ct := multipartBody(t, map[string]string{"cliente_id": "2"}, []byte("webm-bytes"))
	rec := s.do(t, http.MethodPost, "/audio-interact", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	res := decode[types.InteractionResult](t, rec)
	if res.UserText != "Quiero pagar" || res.Text != "respuesta" {
		t.Errorf("result = %+v", res)
	}
	if s.fi.uploaded != "webm-bytes" {
		t.Errorf("uploaded = %q", s.fi.uploaded)
	}
	if s.fi.customer == nil || s.fi.customer.ID != 2 {
		t.Errorf("customer = %+v", s.fi.customer)
	}
}

func TestAudioInteractValidation(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartBody(t, nil, []byte("x"))
	rec := s.do(t, http.MethodPost, "/audio-interact", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing cliente_id status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != msgMissingAudioID {
		t.Errorf("error = %q", got["error"])
	}

	body, ct = multipartBody(t, map[string]string{"cliente_id": "1"}, nil)
	rec = s.do(t, http.MethodPost, "/audio-interact", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing audio status = %d", rec.Code)
	}
	if s.h.Session.Len() != 0 {
		t.Error("session should be untouched")
	}
}

func TestAudioInteractRejectsBadUploads(t *testing.T) {
	s := newTestServer(t)
	s.h.MaxUploadBytes = 512

	body, ct := multipartBody(t, map[string]string{"cliente_id": "1"}, bytes.Repeat([]byte("a"), 4096))
	rec := s.do(t, http.MethodPost, "/audio-interact", body, ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized status = %d, want 413", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != msgUploadTooLarge {
		t.Errorf("oversized error = %q", got["error"])
	}

	rec = s.do(t, http.MethodPost, "/audio-interact", strings.NewReader("not a form"), "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-multipart status = %d, want 400", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["error"] != msgInvalidUpload {
		t.Errorf("non-multipart error = %q", got["error"])
	}
	if s.fi.calls != 0 || s.h.Session.Len() != 0 {
		t.Error("rejected uploads must not reach the pipeline")
	}
}

func TestAudioInteractTranscriptionErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrNoSpeech, http.StatusUnprocessableEntity},
		{types.Classify(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{types.ErrUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		s := newTestServer(t)
		s.fi.audioErr = tt.err
		body, ct := multipartBody(t, map[string]string{"cliente_id": "1"}, []byte("x"))
		rec := s.do(t, http.MethodPost, "/audio-interact", body, ct)
		if rec.Code != tt.want {
			t.Errorf("%v: status = %d, want %d", tt.err, rec.Code, tt.want)
		}
		if s.h.Session.Len() != 0 {
			t.Errorf("%v: session should be untouched", tt.err)
		}
	}
}

func TestResetAndHistory(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/interact", strings.NewReader(`{"input":"Hola","cliente_id":1}`), "application/json")

	rec := s.do(t, http.MethodGet, "/conversation-history", nil, "")
	var hist struct {
		Conversation string `json:"conversation"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if want := "Cliente: Hola\nVal: respuesta"; hist.Conversation != want {
		t.Errorf("conversation = %q, want %q", hist.Conversation, want)
	}

	rec = s.do(t, http.MethodPost, "/reset", nil, "")
	if got := decode[map[string]string](t, rec); got["message"] != "Conversación reiniciada exitosamente." {
		t.Errorf("reset message = %q", got["message"])
	}

	rec = s.do(t, http.MethodGet, "/conversation-history", nil, "")
	if strings.TrimSpace(rec.Body.String()) != `{"conversation":""}` {
		t.Errorf("history after reset = %s", rec.Body.String())
	}
}

func TestHistoryXLSX(t *testing.T) {
	s := newTestServer(t)
	s.h.Session.AppendExchange("Hola", "Buenos días")

	rec := s.do(t, http.MethodGet, "/conversation-history?format=xlsx", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
	}
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Conversacion")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[1][1] != "Cliente" || rows[2][2] != "Buenos días" {
		t.Errorf("rows = %q", rows)
	}
}

func TestIndexAndStatic(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, http.MethodGet, "/", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("index without file status = %d", rec.Code)
	}

	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	if err := os.WriteFile(index, []byte("<h1>Val</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "audio"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "audio", "a.mp3"), []byte("mp3"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.h.IndexPath = index
	s.h.StaticDir = dir
	s.mux = NewRouter(s.h)

	if rec := s.do(t, http.MethodGet, "/", nil, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Val") {
		t.Errorf("index = %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodGet, "/static/audio/a.mp3", nil, ""); rec.Code != http.StatusOK || rec.Body.String() != "mp3" {
		t.Errorf("static = %d %q", rec.Code, rec.Body.String())
	}
}

func TestParseClienteID(t *testing.T) {
	tests := []struct {
		raw  string
		id   int
		want bool
	}{
		{`1`, 1, true},
		{`"3"`, 3, true},
		{`" 2 "`, 2, true},
		{`1.5`, 0, false},
		{`-1`, 0, false},
		{`true`, 0, false},
		{``, 0, false},
	}
	for _, tt := range tests {
		id, ok := parseClienteID(json.RawMessage(tt.raw))
		if ok != tt.want || (ok && id != tt.id) {
			t.Errorf("parseClienteID(%s) = %d, %v", tt.raw, id, ok)
		}
	}
}
