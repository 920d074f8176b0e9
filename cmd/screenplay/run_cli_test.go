package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/screenplay"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	outCh := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outCh <- buf.String()
	}()

	err = fn()
	w.Close()
	os.Stdout = origStdout
	return <-outCh, err
}

func TestRunCLIExecutesScenarioHooksAndReports(t *testing.T) {
	t.Setenv("LOG_LEVEL", "") // ensure flag drives level

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"ok":true,"path":%q,"auth":%q}`, r.URL.Path, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	tmp := t.TempDir()
	hookOut := filepath.Join(tmp, "hook.out")
	scenario := `
name = "cli"

[actors.juliet]
base_url = "{{baseUrl}}"

[[steps]]
name = "ping"
resource = "ping"
headers = [{ name = "Authorization", value = "Bearer {{token}}" }]
status = 200
expect = ["res.body.ok === true", "res.body.auth === 'Bearer s3cret'"]
`
	scenarioPath := filepath.Join(tmp, "cli.toml")
	if err := os.WriteFile(scenarioPath, []byte(scenario), 0o644); err != nil {
		t.Fatal(err)
	}

	script := filepath.Join(tmp, "hook.sh")
	body := fmt.Sprintf("#!/bin/sh\necho HOOK-$SCREENPLAY_HOOK_PHASE >>%s\necho HOOK-$SCREENPLAY_HOOK_PHASE\n", hookOut)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(tmp, "report.json")

	cmd := newRunCmd()
	args := []string{
		"--structured",
		"--log-level", "debug",
		"--var", "baseUrl=" + srv.URL,
		"--var", "token=s3cret",
		"--pre-hook", script,
		"--post-hook", script,
		"--reporter-json", reportPath,
		scenarioPath,
	}
	cmd.SetArgs(args)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if !cmd.Flags().Lookup("log-level").Changed {
		t.Fatalf("log-level flag not marked as changed")
	}
	cmd.SetContext(context.Background())

	out, err := captureStdout(t, cmd.Execute)
	if err != nil {
		t.Fatalf("run cmd: %v", err)
	}

	data, err := os.ReadFile(hookOut)
	if err != nil {
		t.Fatalf("read hook output: %v", err)
	}
	if string(data) != "HOOK-pre\nHOOK-post\n" {
		t.Fatalf("hooks did not run in order, file content: %q", data)
	}
	if !strings.Contains(out, `"msg":"hook"`) || !strings.Contains(out, "HOOK-post") {
		t.Fatalf("expected hook log lines, got %q", out)
	}
	if !strings.Contains(out, `"msg":"summary"`) {
		t.Fatalf("expected summary log line, got %q", out)
	}

	raw, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var sum screenplay.Summary
	if err := json.Unmarshal(raw, &sum); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if sum.Scenario != "cli" || sum.Passed != 1 || len(sum.Steps) != 1 {
		t.Fatalf("unexpected report %+v", sum)
	}
	if got := sum.Steps[0].RequestHeaders["authorization"]; got != "********" {
		t.Fatalf("authorization must be masked in reports, got %q", got)
	}
}

func TestWriteOutputs(t *testing.T) {
	dir := t.TempDir()
	opts := screenplay.RunOptions{
		OutputPath:          filepath.Join(dir, "out.xml"),
		OutputFormat:        "junit",
		ReporterJSON:        filepath.Join(dir, "r.json"),
		ReporterHTML:        filepath.Join(dir, "r.html"),
		ReporterSkipHeaders: []string{"x-secret"},
	}
	sum := screenplay.Summary{
		Scenario: "out",
		Total:    1,
		Passed:   1,
		Steps: []screenplay.StepResult{
			{Name: "a", Passed: true, RequestHeaders: map[string]string{"x-secret": "1", "accept": "*/*"}},
		},
	}
	if err := writeOutputs(opts, sum); err != nil {
		t.Fatalf("write outputs: %v", err)
	}
	for _, p := range []string{opts.OutputPath, opts.ReporterJSON, opts.ReporterHTML} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing report %s: %v", p, err)
		}
	}
	raw, _ := os.ReadFile(opts.ReporterJSON)
	if strings.Contains(string(raw), "x-secret") {
		t.Fatalf("skipped header leaked into report: %s", raw)
	}
	if !strings.HasPrefix(mustRead(t, opts.OutputPath), "<?xml") {
		t.Fatalf("--format junit should write XML")
	}

	opts.OutputFormat = "yaml"
	if err := writeOutputs(opts, sum); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func mustRead(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
