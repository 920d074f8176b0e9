package screenplay

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/importer"
)

// ImportOptions control generation of a scenario from an OpenAPI 3 or
// Swagger 2 document.
type ImportOptions struct {
	Source          string
	OutputFile      string
	ScenarioName    string
	ActorName       string
	Insecure        bool
	AllowRemoteRefs bool
	AllowFileRefs   bool
	IncludePaths    []string
	Logger          pslog.Logger
}

// ImportOpenAPI renders one scenario step per documented operation and
// returns the TOML. It is also written to OutputFile when set. Local
// OpenAPI 3 sources become the scenario's contract and every step is
// marked documented.
func ImportOpenAPI(ctx context.Context, opts ImportOptions) ([]byte, error) {
	return importer.ImportOpenAPI(ctx, importer.Options{
		Source:          opts.Source,
		OutputFile:      opts.OutputFile,
		ScenarioName:    opts.ScenarioName,
		ActorName:       opts.ActorName,
		Insecure:        opts.Insecure,
		AllowRemoteRefs: opts.AllowRemoteRefs,
		AllowFileRefs:   opts.AllowFileRefs,
		IncludePaths:    opts.IncludePaths,
		Logger:          opts.Logger,
	})
}
