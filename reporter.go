package screenplay

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"
	"os"
	"strings"
)

// FilterReportHeaders applies reporter skip/redaction options to a summary before writing outputs.
// It removes headers from the summary when requested and masks credentials.
func FilterReportHeaders(sum Summary, opts RunOptions) Summary {
	return filterReportHeaders(sum, opts.ReporterSkipAllHeaders, opts.ReporterSkipHeaders)
}

func filterReportHeaders(sum Summary, skipAll bool, skipList []string) Summary {
	skipSet := map[string]struct{}{}
	for _, h := range skipList {
		skipSet[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}

	out := sum
	out.Steps = make([]StepResult, len(sum.Steps))
	copy(out.Steps, sum.Steps)

	for i := range out.Steps {
		if skipAll {
			out.Steps[i].RequestHeaders = nil
			out.Steps[i].ResponseHeaders = nil
			continue
		}
		out.Steps[i].RequestHeaders = filterHeaderMap(out.Steps[i].RequestHeaders, skipSet)
		out.Steps[i].ResponseHeaders = filterHeaderMap(out.Steps[i].ResponseHeaders, skipSet)
	}
	return out
}

// filterHeaderMap copies hdrs without skipped names and with credentials masked.
func filterHeaderMap(hdrs map[string]string, skipSet map[string]struct{}) map[string]string {
	if hdrs == nil {
		return nil
	}
	out := map[string]string{}
	for k, v := range hdrs {
		name := strings.ToLower(k)
		if _, skip := skipSet[name]; skip {
			continue
		}
		switch name {
		case "authorization", "proxy-authorization", "cookie", "set-cookie":
			v = "********"
		}
		out[k] = v
	}
	return out
}

// WriteReportJSON writes a Summary to a JSON file.
func WriteReportJSON(path string, sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Minimal JUnit reporter for CI compatibility.
type junitTestsuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     string          `xml:"time,attr"`
	Cases    []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// WriteReportJUnit writes a Summary to JUnit XML for CI consumers. Each
// step becomes a testcase classed by its actor.
func WriteReportJUnit(path string, sum Summary) error {
	name := sum.Scenario
	if name == "" {
		name = "screenplay"
	}
	ts := junitTestsuite{
		Name:     name,
		Tests:    len(sum.Steps),
		Failures: sum.Failed,
		Skipped:  sum.Skipped,
		Time:     fmt.Sprintf("%.3f", sum.TotalElapsed.Seconds()),
	}
	for _, s := range sum.Steps {
		tc := junitTestcase{
			Name:      s.Name,
			Classname: name + "." + s.Actor,
			Time:      fmt.Sprintf("%.3f", s.Duration.Seconds()),
		}
		if sum.Iterations > 1 {
			tc.Name = fmt.Sprintf("%s [%d]", s.Name, s.Iteration+1)
		}
		if s.Skipped {
			tc.Skipped = &junitSkipped{}
		} else if !s.Passed {
			tc.Failure = junitFailureFor(s)
		}
		ts.Cases = append(ts.Cases, tc)
	}
	data, err := xml.MarshalIndent(ts, "", "  ")
	if err != nil {
		return err
	}
	data = append([]byte(xml.Header), data...)
	return os.WriteFile(path, data, 0o644)
}

func junitFailureFor(s StepResult) *junitFailure {
	if s.ErrorText != "" {
		return &junitFailure{Message: s.ErrorText, Type: "error", Body: s.ErrorText}
	}
	lines := make([]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		lines = append(lines, f.Name+": "+f.Message)
	}
	msg := ""
	if len(s.Failures) > 0 {
		msg = s.Failures[0].Message
	}
	return &junitFailure{Message: msg, Type: "assertion", Body: strings.Join(lines, "\n")}
}

var htmlTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>{{.Scenario}} report</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 16px; background: #fafafa; }
    h1 { margin-bottom: 8px; }
    .summary { margin-bottom: 16px; }
    table { width: 100%; border-collapse: collapse; background: #fff; }
    th, td { padding: 8px 10px; border: 1px solid #e0e0e0; font-size: 14px; vertical-align: top; }
    th { background: #f5f5f5; text-align: left; }
    .status-pass { color: #2e7d32; font-weight: 600; }
    .status-fail { color: #c62828; font-weight: 600; }
    .status-skip { color: #9e9e9e; font-weight: 600; }
    .mono { font-family: "SFMono-Regular", Consolas, "Liberation Mono", Menlo, monospace; font-size: 12px; }
  </style>
</head>
<body>
  <h1>{{.Scenario}}</h1>
  <div class="summary">
    <div>Total: {{.Total}} &nbsp; Passed: {{.Passed}} &nbsp; Failed: {{.Failed}} &nbsp; Skipped: {{.Skipped}} &nbsp; Time: {{.TotalElapsed}}</div>
  </div>
  <table>
    <thead>
      <tr>
        <th>#</th>
        <th>Step</th>
        <th>Actor</th>
        <th>Request</th>
        <th>Status</th>
        <th>Result</th>
        <th>Duration</th>
        <th>Details</th>
      </tr>
    </thead>
    <tbody>
      {{range $idx, $s := .Steps}}
      <tr>
        <td>{{$idx}}</td>
        <td>{{$s.Name}}</td>
        <td>{{$s.Actor}}</td>
        <td class="mono">{{$s.Method}} {{$s.URL}}</td>
        <td>{{if $s.Status}}{{$s.Status}}{{end}}</td>
        <td>
          {{if $s.Skipped}}<span class="status-skip">skipped</span>{{else if $s.Passed}}<span class="status-pass">passed</span>{{else}}<span class="status-fail">failed</span>{{end}}
        </td>
        <td>{{$s.Duration}}</td>
        <td>{{if $s.ErrorText}}<span class="mono">{{$s.ErrorText}}</span>{{end}}{{range $s.Failures}}<div class="mono">{{.Name}}: {{.Message}}</div>{{end}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>`))

// WriteReportHTML renders a simple HTML table summary.
func WriteReportHTML(path string, sum Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return htmlTemplate.Execute(f, sum)
}

// WriteReport picks the reporter function by format.
func WriteReport(format, path string, sum Summary) error {
	switch strings.ToLower(format) {
	case "json", "":
		return WriteReportJSON(path, sum)
	case "junit":
		return WriteReportJUnit(path, sum)
	case "html":
		return WriteReportHTML(path, sum)
	default:
		return fmt.Errorf("unknown format %s", format)
	}
}
