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
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
)

// downloadRetries is the number of times a failed download is retried.
const downloadRetries = 4

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL.
// If it's a URL, it downloads the file and
// returns the path to the downloaded file.
// Problems are logged to log and the original path is returned.
func maybeDownload(p string, log logrus.FieldLogger) string {
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return downloadHTTP(p, log)
	}
	return p
}

// downloadHTTP downloads a file from the specified URL, retrying with
// exponential backoff, and returns the path to the downloaded file.
func downloadHTTP(url string, log logrus.FieldLogger) string {
	dir, err := ioutil.TempDir("", "hydrochem")
	if err != nil {
		log.WithError(err).Error("hydroutil: failed creating temporary download directory")
		return url
	}
	name := path.Base(strings.SplitN(url, "?", 2)[0])
	dst := filepath.Join(dir, name)

	var permanent error
	err = backoff.RetryNotify(
		func() error {
			err := fetch(url, dst)
			if p, ok := err.(permanentError); ok {
				permanent = p
				return nil
			}
			return err
		},
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), downloadRetries),
		func(err error, d time.Duration) {
			log.WithFields(logrus.Fields{
				"url":   url,
				"error": err,
			}).Warnf("hydroutil: download failed; retrying in %v", d)
		},
	)
	if err == nil {
		err = permanent
	}
	if err != nil {
		log.WithFields(logrus.Fields{
			"url":   url,
			"error": err,
		}).Error("hydroutil: download failed")
		return url
	}
	return dst
}

// permanentError is a download failure that retrying will not fix.
type permanentError struct{ error }

func fetch(url, dst string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("hydroutil: downloading %s: %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return permanentError{err}
		}
		return err
	}
	w, err := os.Create(dst)
	if err != nil {
		return permanentError{err}
	}
	if _, err = io.Copy(w, resp.Body); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
