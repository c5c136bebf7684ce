package agents

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mentord/internal/capability"
	"github.com/fyrsmithlabs/mentord/internal/export"
	"github.com/fyrsmithlabs/mentord/internal/review"
	"github.com/fyrsmithlabs/mentord/internal/session"
)

type exporter struct {
	deps Deps
}

func newExporter(deps Deps) *exporter {
	return &exporter{deps: deps}
}

func (a *exporter) ID() string { return capability.Exporter }

// Invoke renders the full session into a markdown bundle, stores it on the
// session, and optionally writes it to the export directory.
func (a *exporter) Invoke(ctx context.Context, inv capability.Invocation) (*capability.Result, error) {
	outcome := a.deps.Review.Run(ctx, func(_ context.Context, _ review.Input) (string, error) {
		return export.FormatMarkdown(inv.State), nil
	}, review.Input{
		Prompt: inv.Utterance,
	}, map[string]float64{review.CriterionCompleteness: 2})

	bundle := outcome.Output
	md := reviewMetadata(capability.Exporter, outcome)
	md["bundle_bytes"] = len(bundle)

	content := fmt.Sprintf("Export ready: %d bytes of markdown covering the project so far.", len(bundle))
	if a.deps.ExportDir != "" {
		path := filepath.Join(a.deps.ExportDir, "mentord_export_"+inv.SessionID+".md")
		if err := export.WriteBundle(path, bundle); err != nil {
			a.deps.Logger.Warn("export bundle write failed",
				zap.String("session_id", inv.SessionID),
				zap.String("path", path),
				zap.Error(err),
			)
			content += " Writing the file failed; the bundle is kept on the session."
		} else {
			md["path"] = path
			content = "Export written to " + path + "."
		}
	}

	phase := session.PhaseExportComplete
	return &capability.Result{
		Content: content,
		Delta: session.Delta{
			Phase:  &phase,
			Export: &bundle,
		},
		Metadata: md,
	}, nil
}
