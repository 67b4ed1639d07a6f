// Copyright (C) 2021 The ffdnet-go authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ffdnet-go/ffdnet/internal/dataset"
)

func TestIsPathAllowed(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"train.db", true},
		{"data/train.db", true},
		{"", false},
		{"/etc/passwd", false},
		{"../train.db", false},
		{"data/../../train.db", false},
	}
	for _, tt := range tests {
		if got := isPathAllowed(tt.path); got != tt.want {
			t.Errorf("isPathAllowed(%q)=%v, expected %v", tt.path, got, tt.want)
		}
	}
}

// setupStore switches the working directory to a temp dir holding a one-entry
// store, since the API only accepts relative paths
func setupStore(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	w, err := dataset.CreateStore("fixture.db")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	entry := make([]float32, 3*8*8)
	for i := range entry {
		entry[i] = float32(i%13) / 13
	}
	if _, err := w.Append([]int{3, 8, 8}, [][]float32{entry}); err != nil {
		t.Fatal(err)
	}
}

func get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	router().ServeHTTP(rec, req)
	return rec
}

func expectPNG(t *testing.T, rec *httptest.ResponseRecorder, width, height int) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("got content type %s, expected image/png", ct)
	}
	m, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := m.Bounds(); b.Dx() != width || b.Dy() != height {
		t.Errorf("got %dx%d image, expected %dx%d", b.Dx(), b.Dy(), width, height)
	}
}

func TestServePing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := get(t, "/api/v1/ping")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pong") {
		t.Errorf("got status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestServeStoreInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupStore(t)

	rec := get(t, "/api/v1/stores?path=fixture.db")
	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d, body %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"count":1`) || !strings.Contains(body, `"shape":[3,8,8]`) {
		t.Errorf("unexpected body %s", body)
	}

	if rec := get(t, "/api/v1/stores?path=/etc/passwd"); rec.Code != http.StatusBadRequest {
		t.Errorf("absolute path: got status %d, expected 400", rec.Code)
	}
	if rec := get(t, "/api/v1/stores?path=missing.db"); rec.Code != http.StatusNotFound {
		t.Errorf("missing store: got status %d, expected 404", rec.Code)
	}
}

func TestServeEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupStore(t)

	expectPNG(t, get(t, "/api/v1/entry.png?path=fixture.db&index=0"), 8, 8)

	if rec := get(t, "/api/v1/entry.png?path=fixture.db&index=5"); rec.Code != http.StatusNotFound {
		t.Errorf("missing entry: got status %d, expected 404", rec.Code)
	}
	if rec := get(t, "/api/v1/entry.png?path=fixture.db&index=x"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad index: got status %d, expected 400", rec.Code)
	}
}

func TestServeNoiseMap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupStore(t)

	expectPNG(t, get(t, "/api/v1/noisemap.png?path=fixture.db&index=0"), 8, 8)
	expectPNG(t, get(t, "/api/v1/noisemap.png?path=fixture.db&index=0&mode=wiener&kernelSize=3"), 8, 8)

	if rec := get(t, "/api/v1/noisemap.png?path=fixture.db&index=0&mode=bogus"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown mode: got status %d, expected 400", rec.Code)
	}
	if rec := get(t, "/api/v1/noisemap.png?path=fixture.db&index=0&intervalLow=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad interval: got status %d, expected 400", rec.Code)
	}
}
