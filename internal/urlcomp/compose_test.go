package urlcomp

import (
	"errors"
	"testing"
)

func TestComposeRelativeResources(t *testing.T) {
	cases := []struct {
		base, resource, want string
	}{
		{"http://localhost:5050", "api/users", "http://localhost:5050/api/users"},
		{"http://localhost:5050", "/api/users", "http://localhost:5050/api/users"},
		{"http://localhost:5050/", "api/users", "http://localhost:5050/api/users"},
		{"http://localhost:5050/", "/api/users", "http://localhost:5050/api/users"},
		{"http://localhost:5050/v1/", "/api/users", "http://localhost:5050/v1/api/users"},
		{"http://localhost:5050", "", "http://localhost:5050"},
	}
	for _, tc := range cases {
		got, err := Compose(tc.base, tc.resource, nil)
		if err != nil {
			t.Fatalf("compose(%q, %q): %v", tc.base, tc.resource, err)
		}
		if got != tc.want {
			t.Fatalf("compose(%q, %q) = %q, want %q", tc.base, tc.resource, got, tc.want)
		}
	}
}

func TestComposeAbsoluteResourceIgnoresBase(t *testing.T) {
	cases := []string{
		"http://localhost:5050/api/users",
		"http://localhost:5050/api/users?id=10",
		"https://other.example:8443/x/y?a=1&b=2",
	}
	for _, bases := range []string{"http://localhost:5050", "http://ignored.example/", ""} {
		for _, resource := range cases {
			got, err := Compose(bases, resource, nil)
			if err != nil {
				t.Fatalf("compose(%q, %q): %v", bases, resource, err)
			}
			if got != resource {
				t.Fatalf("expected %q unchanged, got %q", resource, got)
			}
		}
	}
}

func TestComposeQueryMerge(t *testing.T) {
	params := []QueryParam{{Key: "UserId", Value: "2"}, {Key: "LocationId", Value: "3"}}

	got, err := Compose("http://localhost:5050", "api/users?page=2", params)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://localhost:5050/api/users?page=2&UserId=2&LocationId=3"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	got, err = Compose("http://localhost:5050", "api/users", params)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://localhost:5050/api/users?UserId=2&LocationId=3"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	got, err = Compose("http://ignored", "http://localhost:5050/api/users?id=10", params[:1])
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://localhost:5050/api/users?id=10&UserId=2"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComposeDuplicateKeysKeptInOrder(t *testing.T) {
	params := []QueryParam{{Key: "tag", Value: "a"}, {Key: "tag", Value: "b"}}
	got, err := Compose("http://h", "items", params)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://h/items?tag=a&tag=b"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComposeEscapesReservedCharacters(t *testing.T) {
	got, err := Compose("http://h", "search", []QueryParam{{Key: "q", Value: "a b&c=d"}})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://h/search?q=a+b%26c%3Dd"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComposeKeepsFragmentLast(t *testing.T) {
	got, err := Compose("http://h", "docs?v=1#intro", []QueryParam{{Key: "x", Value: "1"}})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if want := "http://h/docs?v=1&x=1#intro"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestComposeIsPure(t *testing.T) {
	params := []QueryParam{{Key: "a", Value: "1"}}
	first, err := Compose("http://h/", "/p?z=0", params)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	second, err := Compose("http://h/", "/p?z=0", params)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical output, got %q and %q", first, second)
	}
	if params[0].Key != "a" || params[0].Value != "1" {
		t.Fatalf("params mutated: %+v", params)
	}
}

func TestComposeErrors(t *testing.T) {
	if _, err := Compose("", "api/users", nil); !errors.Is(err, ErrMalformedBase) {
		t.Fatalf("expected ErrMalformedBase for empty base, got %v", err)
	}
	if _, err := Compose("localhost:5050", "api/users", nil); !errors.Is(err, ErrMalformedBase) {
		t.Fatalf("expected ErrMalformedBase for base without scheme, got %v", err)
	}
	if _, err := Compose("http://h", "http://bad host/x", nil); !errors.Is(err, ErrMalformedResource) {
		t.Fatalf("expected ErrMalformedResource, got %v", err)
	}
}
