package importer

import "pkt.systems/pslog"

// Options describes how an OpenAPI document becomes a scenario file.
type Options struct {
	// Source is a file path or http(s) URL.
	Source string
	// OutputFile receives the scenario TOML when set.
	OutputFile string
	// ScenarioName defaults to the document title.
	ScenarioName string
	// ActorName defaults to "client".
	ActorName       string
	Insecure        bool
	AllowRemoteRefs bool
	AllowFileRefs   bool
	// IncludePaths keeps only routes equal to or prefixed by one of these.
	IncludePaths []string
	Logger       pslog.Logger
}
