package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildHTTPClientInsecureTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := buildHTTPClient(true, "", false, "", false, false)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	strict, err := buildHTTPClient(false, "", false, "", false, false)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := strict.Get(srv.URL); err == nil {
		t.Fatalf("expected certificate error without --insecure")
	}
}

func TestBuildHTTPClientProxyBypass(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://127.0.0.1:9")
	t.Setenv("HTTPS_PROXY", "http://127.0.0.1:9")

	client, err := buildHTTPClient(false, "", false, "", false, false)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if client.Transport.(*http.Transport).Proxy == nil {
		t.Fatalf("expected proxy function when noproxy=false")
	}

	client, err = buildHTTPClient(false, "", false, "", true, false)
	if err != nil {
		t.Fatalf("client noproxy: %v", err)
	}
	if client.Transport.(*http.Transport).Proxy != nil {
		t.Fatalf("expected proxy disabled when noproxy=true")
	}
}

func TestBuildHTTPClientCookies(t *testing.T) {
	client, err := buildHTTPClient(false, "", false, "", false, false)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if client.Jar == nil {
		t.Fatalf("expected a cookie jar by default")
	}
	client, err = buildHTTPClient(false, "", false, "", false, true)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if client.Jar != nil {
		t.Fatalf("expected no cookie jar with --disable-cookies")
	}
}

func TestBuildHTTPClientBadCACert(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := buildHTTPClient(false, path, true, "", false, false); err == nil {
		t.Fatalf("expected error for invalid CA PEM")
	}
	if _, err := buildHTTPClient(false, filepath.Join(t.TempDir(), "missing.pem"), false, "", false, false); err == nil {
		t.Fatalf("expected error for missing CA file")
	}
}

func TestParseClientCertConfig(t *testing.T) {
	cfgPath := filepath.Join("/etc", "screenplay", "client.json")
	cert, key, err := parseClientCertConfig(cfgPath, []byte(`{"cert":"tls/client.crt","key":"/abs/client.key"}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cert != filepath.Join("/etc", "screenplay", "tls", "client.crt") || key != "/abs/client.key" {
		t.Fatalf("cert=%q key=%q", cert, key)
	}
	if _, _, err := parseClientCertConfig(cfgPath, []byte(`{"cert":"a"}`)); err == nil {
		t.Fatalf("expected error without key")
	}
	if _, _, err := parseClientCertConfig(cfgPath, []byte(`{`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}

func TestParseVars(t *testing.T) {
	vars, err := parseVars([]string{"baseUrl=http://x?a=b", "empty="})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if vars["baseUrl"] != "http://x?a=b" || vars["empty"] != "" {
		t.Fatalf("vars = %v", vars)
	}
	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseVars([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
