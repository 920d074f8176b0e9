package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/screenplay"
)

const pingAPI = `openapi: 3.0.3
info:
  title: Ping
  version: "1"
servers:
  - url: http://localhost:5050
paths:
  /ping:
    get:
      operationId: ping
      responses:
        "200":
          description: pong
`

func TestImportOpenAPICommandWritesScenario(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ping.yaml")
	if err := os.WriteFile(src, []byte(pingAPI), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "ping.toml")

	root := newRootCmd()
	root.SetArgs([]string{"import", "openapi", "--structured", "-s", src, "-o", out, "--actor", "juliet"})
	root.SetContext(context.Background())
	if _, err := captureStdout(t, root.Execute); err != nil {
		t.Fatalf("import: %v", err)
	}
	sc, err := screenplay.LoadScenario(out)
	if err != nil {
		t.Fatalf("load generated scenario: %v", err)
	}
	if sc.Contract != "ping.yaml" || len(sc.Steps) != 1 || sc.Steps[0].Name != "ping" || !sc.Steps[0].Documented {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if _, ok := sc.Actors["juliet"]; !ok {
		t.Fatalf("actors = %v", sc.Actors)
	}
}

func TestImportOpenAPICommandPrintsToStdout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ping.yaml")
	if err := os.WriteFile(src, []byte(pingAPI), 0o644); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	root.SetArgs([]string{"import", "openapi", "--source", src})
	root.SetContext(context.Background())
	out, err := captureStdout(t, root.Execute)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, err := screenplay.ParseScenario([]byte(out)); err != nil {
		t.Fatalf("stdout is not a scenario: %v\n%s", err, out)
	}
	if !strings.Contains(out, `resource = 'ping'`) && !strings.Contains(out, `resource = "ping"`) {
		t.Fatalf("missing step resource in %q", out)
	}
}

func TestImportOpenAPICommandRequiresSource(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"import", "openapi"})
	root.SetContext(context.Background())
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "--source") {
		t.Fatalf("expected --source error, got %v", err)
	}
}
