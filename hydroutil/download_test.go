/*
Copyright © 2024 the HydroChem authors.
This file is part of HydroChem.

HydroChem is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

HydroChem is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with HydroChem.  If not, see <http://www.gnu.org/licenses/>.
*/

package hydroutil

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type testWriter struct{ t *testing.T }

func (w testWriter) Write(b []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(b)))
	return len(b), nil
}

func helperLog(t *testing.T) logrus.FieldLogger {
	l := logrus.New()
	l.Out = testWriter{t}
	return l
}

func TestMaybeDownloadLocal(t *testing.T) {
	if k := maybeDownload("/dev/null", helperLog(t)); k != "/dev/null" {
		t.Error("Expected /dev/null, got ", k)
	}
}

func TestMaybeDownloadLocal2(t *testing.T) {
	if k := maybeDownload("/blah/test/", helperLog(t)); k != "/blah/test/" {
		t.Error("Expected /blah/test/, got ", k)
	}
}

func TestMaybeDownloadEmpty(t *testing.T) {
	if k := maybeDownload("", helperLog(t)); k != "" {
		t.Errorf("Expected empty path, got %q", k)
	}
}

func TestMaybeDownloadRemoteFail(t *testing.T) {
	if testing.Short() {
		t.Skip("retries take several seconds")
	}
	if k := maybeDownload("http://blah/test/", helperLog(t)); k != "http://blah/test/" {
		t.Error("Expected http://blah/test/, got ", k)
	}
}

func TestMaybeDownloadRemoteNotFound(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		http.NotFound(w, r)
	}))
	defer srv.Close()
	u := srv.URL + "/missing.toml"
	if k := maybeDownload(u, helperLog(t)); k != u {
		t.Errorf("Expected %s, got %s", u, k)
	}
	if requests != 1 {
		t.Errorf("a missing file should not be retried, but got %d requests", requests)
	}
}

func TestMaybeDownloadRemote(t *testing.T) {
	dir, err := ioutil.TempDir("", "hydrochem_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	const contents = "[[plant]]\nname = \"Lettuce\"\n"
	if err := ioutil.WriteFile(filepath.Join(dir, "plants.toml"), []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	k := maybeDownload(srv.URL+"/plants.toml?version=2", helperLog(t))
	if !strings.HasSuffix(k, "plants.toml") || strings.HasPrefix(k, "http") {
		t.Fatal("Expected tempDir/plants.toml, got ", k)
	}
	defer os.RemoveAll(filepath.Dir(k))
	b, err := ioutil.ReadFile(k)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != contents {
		t.Errorf("downloaded %q, want %q", b, contents)
	}
}
