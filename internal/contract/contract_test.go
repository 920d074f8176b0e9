package contract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const usersSpec = `openapi: 3.0.3
info:
  title: Users
  version: "1.0"
servers:
  - url: http://localhost:5050/api
paths:
  /users:
    get:
      responses:
        "200":
          description: list
          content:
            application/json:
              schema:
                type: array
                items:
                  type: object
    post:
      responses:
        "201":
          description: created
          content:
            application/json:
              schema:
                type: object
                required: [id, name]
                properties:
                  id:
                    type: integer
                  name:
                    type: string
        4XX:
          description: client error
  /users/me:
    get:
      responses:
        "200":
          description: me
  /users/{id}:
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: string
      responses:
        "200":
          description: one
        default:
          description: anything else
`

func loadUsers(t *testing.T) *Contract {
	t.Helper()
	c, err := Parse(context.Background(), []byte(usersSpec))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c
}

func TestOperationMatchesTemplatesAndServerPrefix(t *testing.T) {
	c := loadUsers(t)
	if c.Title() != "Users" {
		t.Fatalf("title = %q", c.Title())
	}
	cases := map[string]string{
		"http://localhost:5050/api/users":         "/users",
		"http://localhost:5050/api/users/me":      "/users/me",
		"http://localhost:5050/api/users/42?x=1":  "/users/{id}",
		"http://other.example/users/42":           "/users/{id}",
	}
	for rawURL, want := range cases {
		_, template, err := c.Operation("GET", rawURL)
		if err != nil {
			t.Fatalf("operation %s: %v", rawURL, err)
		}
		if template != want {
			t.Fatalf("%s matched %q want %q", rawURL, template, want)
		}
	}
	if _, _, err := c.Operation("DELETE", "http://localhost:5050/api/users"); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
	if _, _, err := c.Operation("GET", "http://localhost:5050/api/orders"); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestCheckStatusAndSchema(t *testing.T) {
	c := loadUsers(t)
	base := "http://localhost:5050/api/users"

	if err := c.Check("POST", base, 201, "application/json", []byte(`{"id":1,"name":"juliet"}`)); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if err := c.Check("POST", base, 201, "application/json; charset=utf-8", []byte(`{"id":"x"}`)); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if err := c.Check("POST", base, 422, "", nil); err != nil {
		t.Fatalf("4XX range should document 422: %v", err)
	}
	if err := c.Check("POST", base, 500, "", nil); !errors.Is(err, ErrUndocumentedStatus) {
		t.Fatalf("expected ErrUndocumentedStatus, got %v", err)
	}
	if err := c.Check("GET", base+"/7", 503, "", nil); err != nil {
		t.Fatalf("default response should document 503: %v", err)
	}
	if err := c.Check("GET", base, 200, "text/plain", []byte("not json")); err != nil {
		t.Fatalf("non-json bodies are not schema checked: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	if err := os.WriteFile(path, []byte(usersSpec), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(context.Background(), path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseRejectsInvalidDocument(t *testing.T) {
	if _, err := Parse(context.Background(), []byte("openapi: 3.0.3\ninfo: {}\npaths: {}\n")); err == nil {
		t.Fatalf("expected validation error")
	}
}
