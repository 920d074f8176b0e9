package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"pkt.systems/screenplay/internal/request"
)

// ErrInvalidScenario is returned when a scenario file fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a parsed scenario file: named actors, each able to call an
// API at a base URL, and the ordered steps they perform.
type Scenario struct {
	Name     string               `toml:"name"`
	Contract string               `toml:"contract"`
	Vars     map[string]string    `toml:"vars"`
	Actors   map[string]ActorSpec `toml:"actors"`
	Steps    []Step               `toml:"steps"`

	// Path is the file the scenario was loaded from; relative contract
	// paths resolve against its directory.
	Path string `toml:"-"`
}

// ActorSpec configures one actor's ability to call an API.
type ActorSpec struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`

	timeout time.Duration
}

// Step is one interaction and the expectations about its response.
type Step struct {
	Name        string   `toml:"name"`
	Actor       string   `toml:"actor"`
	Verb        string   `toml:"verb"`
	Resource    string   `toml:"resource"`
	Tags        []string `toml:"tags"`
	Skip        bool     `toml:"skip"`
	Timeout     string   `toml:"timeout"`
	Headers     []Header `toml:"headers"`
	Query       []Param  `toml:"query"`
	JSON        any      `toml:"json"`
	Text        string   `toml:"text"`
	ContentType string   `toml:"content_type"`
	Fields      []Field  `toml:"fields"`

	Status     int               `toml:"status"`
	Expect     []string          `toml:"expect"`
	Documented bool              `toml:"documented"`
	Capture    map[string]string `toml:"capture"`

	verb    request.Verb
	timeout time.Duration
}

// Header is one request header; repeated names are all sent.
type Header struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// Param is one query parameter appended in declaration order.
type Param struct {
	Key   string `toml:"key"`
	Value string `toml:"value"`
}

// Field sets a JSON body field by gjson/sjson path.
type Field struct {
	Path  string `toml:"path"`
	Value any    `toml:"value"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sc.Path = path
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sc, nil
}

// Parse decodes and validates a TOML scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// ActorNames lists the scenario's actors in sorted order.
func (sc *Scenario) ActorNames() []string {
	names := make([]string, 0, len(sc.Actors))
	for name := range sc.Actors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sc *Scenario) validate() error {
	if len(sc.Actors) == 0 {
		return fmt.Errorf("%w: no actors", ErrInvalidScenario)
	}
	for name, spec := range sc.Actors {
		if strings.TrimSpace(spec.BaseURL) == "" {
			return fmt.Errorf("%w: actor %q: base_url is required", ErrInvalidScenario, name)
		}
		d, err := parseDuration(spec.Timeout)
		if err != nil {
			return fmt.Errorf("%w: actor %q: timeout: %v", ErrInvalidScenario, name, err)
		}
		spec.timeout = d
		sc.Actors[name] = spec
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	names := sc.ActorNames()
	for i := range sc.Steps {
		st := &sc.Steps[i]
		label := stepLabel(i, *st)
		if st.Actor == "" {
			if len(names) != 1 {
				return fmt.Errorf("%w: %s: actor is required when more than one actor is declared", ErrInvalidScenario, label)
			}
			st.Actor = names[0]
		}
		if _, ok := sc.Actors[st.Actor]; !ok {
			return fmt.Errorf("%w: %s: unknown actor %q", ErrInvalidScenario, label, st.Actor)
		}
		if st.Verb == "" {
			st.Verb = string(request.Get)
		}
		v, err := request.ParseVerb(st.Verb)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidScenario, label, err)
		}
		st.verb = v
		if strings.TrimSpace(st.Resource) == "" {
			return fmt.Errorf("%w: %s: resource is required", ErrInvalidScenario, label)
		}
		if st.JSON != nil && st.Text != "" {
			return fmt.Errorf("%w: %s: json and text bodies are mutually exclusive", ErrInvalidScenario, label)
		}
		if !v.Bodied() && (st.JSON != nil || st.Text != "" || len(st.Fields) > 0) {
			return fmt.Errorf("%w: %s: %s does not carry a body", ErrInvalidScenario, label, v)
		}
		if st.Text != "" && len(st.Fields) > 0 {
			return fmt.Errorf("%w: %s: fields require a json body", ErrInvalidScenario, label)
		}
		if st.Status != 0 && (st.Status < 100 || st.Status > 599) {
			return fmt.Errorf("%w: %s: status %d out of range", ErrInvalidScenario, label, st.Status)
		}
		d, err := parseDuration(st.Timeout)
		if err != nil {
			return fmt.Errorf("%w: %s: timeout: %v", ErrInvalidScenario, label, err)
		}
		st.timeout = d
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func stepLabel(i int, st Step) string {
	if st.Name != "" {
		return fmt.Sprintf("step %d (%s)", i+1, st.Name)
	}
	return fmt.Sprintf("step %d", i+1)
}
