package importer

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

func insecureHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
}

func fetchWithClient(src string, client *http.Client) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Get(src)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("http %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// fetchExternal resolves $ref targets: local files inside the source's
// directory tree and same-origin URLs unless the options widen that.
func fetchExternal(u *url.URL, client *http.Client, opts Options) ([]byte, error) {
	if u.Scheme == "" || u.Scheme == "file" {
		if !allowLocalRef(u, opts) {
			return nil, fmt.Errorf("file ref blocked: %s (use --allow-file-refs)", u.String())
		}
		return os.ReadFile(u.Path)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported external ref scheme: %s", u.Scheme)
	}
	if !opts.AllowRemoteRefs && !sameOrigin(u, opts.Source) {
		return nil, fmt.Errorf("remote external ref blocked: %s (use --allow-remote-refs)", u.String())
	}
	return fetchWithClient(u.String(), client)
}

func sameOrigin(ref *url.URL, source string) bool {
	srcURL, err := url.Parse(source)
	if err != nil || srcURL.Scheme == "" {
		return false
	}
	return srcURL.Scheme == ref.Scheme && srcURL.Host == ref.Host
}

func allowLocalRef(u *url.URL, opts Options) bool {
	if opts.AllowFileRefs {
		return true
	}
	if isURL(opts.Source) {
		return false
	}
	baseAbs, err := filepath.Abs(filepath.Dir(opts.Source))
	if err != nil {
		return false
	}
	refPath := u.Path
	if !filepath.IsAbs(refPath) {
		refPath = filepath.Join(baseAbs, refPath)
	}
	refAbs, err := filepath.Abs(filepath.Clean(refPath))
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, refAbs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
