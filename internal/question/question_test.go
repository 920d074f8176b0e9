package question

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/contract"
	"pkt.systems/screenplay/internal/interaction"
	"pkt.systems/screenplay/internal/sender"
)

func actorWithResponse(t *testing.T, resp *sender.Response) *actor.Actor {
	t.Helper()
	rec := sender.NewRecorder()
	rec.SetupResponse(resp)
	a := actor.Named("Juliet", actor.WithLogger(pslog.NewStructured(&bytes.Buffer{}))).
		WhoCan(interaction.CallAnAPIAt("http://localhost:5050/api").With(rec))
	if err := a.AttemptsTo(context.Background(), interaction.Get.ResourceAt("users/7")); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	return a
}

func jsonResponse(t *testing.T, status int, v any) *sender.Response {
	t.Helper()
	resp, err := sender.JSONResponse(status, v)
	if err != nil {
		t.Fatalf("json response: %v", err)
	}
	return resp
}

func TestQuestionsBeforeAnyInteraction(t *testing.T) {
	a := actor.Named("Romeo", actor.WithLogger(pslog.NewStructured(&bytes.Buffer{})))
	if _, err := actor.Recall(a, LastResponse()); !errors.Is(err, actor.ErrNoPriorInteraction) {
		t.Fatalf("expected ErrNoPriorInteraction, got %v", err)
	}
	if _, err := actor.Recall(a, StatusCode()); !errors.Is(err, actor.ErrNoPriorInteraction) {
		t.Fatalf("expected ErrNoPriorInteraction, got %v", err)
	}
}

func TestResponseQuestions(t *testing.T) {
	resp := sender.NewResponse(http.StatusAccepted, http.Header{"X-Id": {"1", "2"}}, []byte("hello"))
	a := actorWithResponse(t, resp)

	if got, _ := actor.Recall(a, StatusCode()); got != http.StatusAccepted {
		t.Fatalf("status = %d", got)
	}
	if got, _ := actor.Recall(a, HeaderValue("x-id")); got != "1" {
		t.Fatalf("header = %q", got)
	}
	if got, _ := actor.Recall(a, HeaderValues("X-Id")); len(got) != 2 {
		t.Fatalf("header values = %v", got)
	}
	if got, _ := actor.Recall(a, Text()); got != "hello" {
		t.Fatalf("text = %q", got)
	}
	if got, _ := actor.Recall(a, Body()); string(got) != "hello" {
		t.Fatalf("body = %q", got)
	}
	if got, _ := actor.Recall(a, TargetURI()); got != "http://localhost:5050/api/users/7" {
		t.Fatalf("uri = %q", got)
	}
	// recalling is read-only and repeatable
	first, _ := actor.Recall(a, LastResponse())
	second, _ := actor.Recall(a, LastResponse())
	if first != second {
		t.Fatalf("recall should return the same stored response")
	}
}

func TestJSONQuestions(t *testing.T) {
	a := actorWithResponse(t, jsonResponse(t, 200, map[string]any{"data": map[string]any{"id": 7, "tags": []string{"a", "b"}}}))

	res, err := actor.Recall(a, JSONPath("data.tags.#"))
	if err != nil {
		t.Fatalf("json path: %v", err)
	}
	if res.Int() != 2 {
		t.Fatalf("tags count = %d", res.Int())
	}
	v, err := actor.Recall(a, JSONValue("data.id"))
	if err != nil {
		t.Fatalf("json value: %v", err)
	}
	if v != float64(7) {
		t.Fatalf("id = %#v", v)
	}
	if _, err := actor.Recall(a, JSONValue("data.missing")); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}

	plain := actorWithResponse(t, sender.NewResponse(200, nil, []byte("<xml/>")))
	if _, err := actor.Recall(plain, JSONPath("a")); !errors.Is(err, ErrNotJSON) {
		t.Fatalf("expected ErrNotJSON, got %v", err)
	}
}

func TestExpect(t *testing.T) {
	a := actorWithResponse(t, jsonResponse(t, 201, map[string]any{"name": "juliet", "roles": []string{"admin"}}))

	cases := map[string]bool{
		`res.status === 201`:                                  true,
		`res.status === 200`:                                  false,
		`res.body.name === "juliet" && res.body.roles.length`: true,
		`res.headers["content-type"] === "application/json"`:  true,
		`res.url.endsWith("/users/7")`:                        true,
		`assert(res.status < 300, "not ok")`:                  true,
	}
	for script, want := range cases {
		got, err := actor.Recall(a, Expect(script))
		if err != nil {
			t.Fatalf("%s: %v", script, err)
		}
		if got != want {
			t.Fatalf("%s = %v want %v", script, got, want)
		}
	}

	if _, err := actor.Recall(a, Expect(`assert(res.status === 500, "expected a server error")`)); !errors.Is(err, ErrScript) {
		t.Fatalf("expected ErrScript from failed assert, got %v", err)
	}
	if _, err := actor.Recall(a, Expect(`res.body.(`)); !errors.Is(err, ErrScript) {
		t.Fatalf("expected ErrScript from syntax error, got %v", err)
	}
}

const petsSpec = `openapi: 3.0.3
info:
  title: Users
  version: "1.0"
servers:
  - url: http://localhost:5050/api
paths:
  /users/{id}:
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: one
          content:
            application/json:
              schema:
                type: object
                required: [name]
                properties:
                  name:
                    type: string
`

func TestDocumented(t *testing.T) {
	c, err := contract.Parse(context.Background(), []byte(petsSpec))
	if err != nil {
		t.Fatalf("contract: %v", err)
	}

	ok := actorWithResponse(t, jsonResponse(t, 200, map[string]string{"name": "juliet"}))
	if got, err := actor.Recall(ok, Documented(c, http.MethodGet)); err != nil || !got {
		t.Fatalf("expected documented response, got %v %v", got, err)
	}

	wrongStatus := actorWithResponse(t, jsonResponse(t, 404, map[string]string{"error": "nope"}))
	if got, err := actor.Recall(wrongStatus, Documented(c, http.MethodGet)); err != nil || got {
		t.Fatalf("expected undocumented 404, got %v %v", got, err)
	}
	resp, _ := wrongStatus.LastResponse()
	if err := CheckContract(c, http.MethodGet, resp); !errors.Is(err, contract.ErrUndocumentedStatus) {
		t.Fatalf("expected ErrUndocumentedStatus, got %v", err)
	}

	badBody := actorWithResponse(t, jsonResponse(t, 200, map[string]int{"name": 3}))
	if got, _ := actor.Recall(badBody, Documented(c, http.MethodGet)); got {
		t.Fatalf("schema mismatch should not be documented")
	}
}
