package core

import (
	"strings"

	"github.com/joseph-ayodele/form106-ingest/internal/fields"
	"github.com/joseph-ayodele/form106-ingest/internal/ocr"
	"github.com/joseph-ayodele/form106-ingest/internal/security"
	"github.com/joseph-ayodele/form106-ingest/internal/textlayer"
	"github.com/joseph-ayodele/form106-ingest/internal/validate"
)

// Version of the orchestration logic itself.
const Version = "1.0.0"

// ComponentVersion names one versioned part of the pipeline.
type ComponentVersion struct {
	Name    string
	Version string
}

// Components lists every part whose behavior can change an outcome, in
// pipeline order.
func Components() []ComponentVersion {
	return []ComponentVersion{
		{"pipeline", Version},
		{"screen", security.Version},
		{"text", textlayer.Version},
		{"ocr", ocr.Version},
		{"fields", fields.Version},
		{"validate", validate.Version},
	}
}

// ComposeVersion joins components as "name:version|name:version".
func ComposeVersion(parts []ComponentVersion) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = p.Name + ":" + p.Version
	}
	return strings.Join(s, "|")
}

// ParserVersion is stamped on every result and failure.
var ParserVersion = ComposeVersion(Components())
