/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

package uclchemutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
)

// maybeDownload checks if the input is an existing local file. If not,
// and it is an http(s) URL or an s3:// object, it downloads the file to a
// temporary directory and returns the path to the downloaded file.
// Other paths are returned unchanged. Environment variables in p are
// expanded first.
func maybeDownload(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	p = os.ExpandEnv(p)
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, nil
	}
	switch {
	case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
		return downloadHTTP(ctx, p, log)
	case strings.HasPrefix(p, "s3://"):
		return downloadS3(ctx, p, log)
	case strings.HasPrefix(p, "file://"):
		return strings.TrimPrefix(p, "file://"), nil
	}
	return p, nil
}

// downloadFile creates a file with the base name of the URL path in a new
// temporary directory.
func downloadFile(u *url.URL) (*os.File, error) {
	dir, err := os.MkdirTemp("", "uclchemtools")
	if err != nil {
		return nil, fmt.Errorf("uclchemutil: failed creating temporary download directory: %v", err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		name = "download"
	}
	return os.Create(filepath.Join(dir, name))
}

// downloadHTTP downloads a file from the specified URL and returns the
// path to the downloaded file.
func downloadHTTP(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("uclchemutil: %v", err)
	}
	req, err := http.NewRequest(http.MethodGet, p, nil)
	if err != nil {
		return "", fmt.Errorf("uclchemutil: %v", err)
	}
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("uclchemutil: downloading %s: %v", p, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("uclchemutil: downloading %s: %s", p, resp.Status)
	}
	w, err := downloadFile(u)
	if err != nil {
		return "", err
	}
	defer w.Close()
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("uclchemutil: downloading %s: %v", p, err)
	}
	log.WithFields(logrus.Fields{"url": p, "file": w.Name()}).Debug("downloaded input")
	return w.Name(), w.Close()
}

// downloadS3 downloads an object from AWS S3. It uses the credentials in
// the AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables
// and the region in AWS_REGION.
func downloadS3(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	u, err := url.Parse(p)
	if err != nil {
		return "", fmt.Errorf("uclchemutil: %v", err)
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	s, err := session.NewSession(&aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	})
	if err != nil {
		return "", fmt.Errorf("uclchemutil: %v", err)
	}
	w, err := downloadFile(u)
	if err != nil {
		return "", err
	}
	defer w.Close()
	_, err = s3manager.NewDownloader(s).DownloadWithContext(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(strings.TrimPrefix(u.Path, "/")),
	})
	if err != nil {
		return "", fmt.Errorf("uclchemutil: downloading %s: %v", p, err)
	}
	log.WithFields(logrus.Fields{"url": p, "file": w.Name()}).Debug("downloaded input")
	return w.Name(), w.Close()
}
