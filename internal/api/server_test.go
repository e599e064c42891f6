package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/dattest"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/internal/session"
	"github.com/DRGN-DRC/Melee-Modding-Wizard-sub000/pkg/dat"
)

// testImage: root at 0x00 points to 0x40 (a label target) and 0x80.
func testImage() []byte {
	return dattest.New(0x100).
		Pointer(0x00, 0x40).
		Pointer(0x04, 0x80).
		Root(0x00, "scene_data").
		Alias(0x40, "joint_0").
		Bytes()
}

func newTestEcho(t *testing.T, path string) (*echo.Echo, *session.Session) {
	t.Helper()
	var (
		sess *session.Session
		err  error
	)
	if path != "" {
		sess, err = session.Open(session.Config{Path: path})
	} else {
		sess, err = session.FromBytes(testImage(), session.Config{})
	}
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	e := echo.New()
	NewServer(sess, nil).Register(e)
	return e, sess
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestHeader(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodGet, "/v1/header", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	h := decode[HeaderResp](t, rec)
	if h.Tag != "DAT0" || h.DataSize != 0x100 || h.RelocCount != 2 || h.RootCount != 1 || h.AliasCount != 1 {
		t.Fatalf("unexpected header: %+v", h)
	}
	if h.Sections.RelocStart != 0x100 || h.Sections.RootStart != 0x108 {
		t.Fatalf("unexpected sections: %+v", h.Sections)
	}
}

func TestGetRecord(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodGet, "/v1/records/0x40", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	d := decode[RecordDetail](t, rec)
	if d.Offset != 0x40 || d.Length != 0x40 || d.Kind != "untyped" {
		t.Fatalf("unexpected record: %+v", d.RecordSummary)
	}
	if len(d.Parents) != 1 || d.Parents[0] != 0x00 {
		t.Fatalf("parents: got %v, want [0]", d.Parents)
	}
	if len(d.Words) != 0x10 {
		t.Fatalf("words: got %d, want 16", len(d.Words))
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/records/nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad offset: got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/records/0x9999", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("out of range: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLabels(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodGet, "/v1/labels", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	body := decode[struct {
		Labels []NodeResp `json:"labels"`
	}](t, rec)
	if len(body.Labels) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(body.Labels))
	}
	if body.Labels[0].Kind != "root" || body.Labels[1].Kind != "label" {
		t.Fatalf("unexpected classification: %+v", body.Labels)
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/labels/joint_0", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("label lookup: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/labels/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing label: got %d", rec.Code)
	}
}

func TestResizeAndChanges(t *testing.T) {
	t.Parallel()
	e, sess := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodPost, "/v1/records/0x40/resize", `{"delta":16}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("resize: got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Header  HeaderResp   `json:"header"`
		Changes []dat.Change `json:"changes"`
	}](t, rec)
	// 16 rounds up to the 0x20 alignment unit.
	if body.Header.DataSize != 0x120 {
		t.Fatalf("data size: got %#x, want 0x120", body.Header.DataSize)
	}
	if len(body.Changes) != 1 || body.Changes[0].Delta != 0x20 {
		t.Fatalf("unexpected changes: %+v", body.Changes)
	}
	if !sess.Dirty() {
		t.Fatal("session should be dirty")
	}

	rec = doJSON(t, e, http.MethodGet, "/v1/changes", "")
	changes := decode[ChangesResp](t, rec)
	if len(changes.Changes) != 1 || !changes.Dirty {
		t.Fatalf("unexpected change log: %+v", changes)
	}

	rec = doJSON(t, e, http.MethodPost, "/v1/records/0x40/resize", `{"delta":-4096}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversized shrink: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodPost, "/v1/records/0x40/resize", `{"delta":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero delta: got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPost, "/v1/records/0x40/resize", `{"delta":1,"extra":true}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: got %d", rec.Code)
	}
}

func TestWriteBytes(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodPut, "/v1/records/0x80/bytes", `{"at":8,"hex":"de ad be ef"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("write: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/records/0x80", "")
	d := decode[RecordDetail](t, rec)
	if !strings.HasPrefix(d.Data[16:], "deadbeef") {
		t.Fatalf("bytes not written: %s", d.Data)
	}

	// The root record holds pointers at 0x00 and 0x04.
	rec = doJSON(t, e, http.MethodPut, "/v1/records/0x00/bytes", `{"at":2,"hex":"0000"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("pointer overlap: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRemoveRecordDropsLabel(t *testing.T) {
	t.Parallel()
	e, _ := newTestEcho(t, "")

	rec := doJSON(t, e, http.MethodDelete, "/v1/records/0x40", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/labels/joint_0", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("label should be gone, got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodGet, "/v1/verify", "")
	v := decode[VerifyResp](t, rec)
	if !v.OK {
		t.Fatalf("container should verify after removal: %+v", v.Issues)
	}
}

func TestFileAndSave(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "scene.dat")
	if err := os.WriteFile(path, testImage(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	e, _ := newTestEcho(t, path)

	rec := doJSON(t, e, http.MethodGet, "/v1/file", "")
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), testImage()) {
		t.Fatalf("file: got %d, %d bytes", rec.Code, rec.Body.Len())
	}

	if rec := doJSON(t, e, http.MethodPost, "/v1/records/0x80/resize", `{"delta":32}`); rec.Code != http.StatusOK {
		t.Fatalf("resize: got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := doJSON(t, e, http.MethodPost, "/v1/save", ""); rec.Code != http.StatusOK {
		t.Fatalf("save: got %d body=%s", rec.Code, rec.Body.String())
	}
	saved, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(saved) != len(testImage())+0x20 {
		t.Fatalf("saved %d bytes, want %d", len(saved), len(testImage())+0x20)
	}
}
