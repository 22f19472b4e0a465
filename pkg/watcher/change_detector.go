package watcher

import "strings"

// ChangeAnalysis describes what changed and what a re-run has to redo
type ChangeAnalysis struct {
	ReloadOntology bool
	ChangedFiles   []string
	Reason         string
}

// AnalyzeChanges determines how much of the pipeline a batch of changes
// invalidates
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}

	var kinds []string
	seen := make(map[ChangeType]bool)
	for _, event := range events {
		analysis.ChangedFiles = append(analysis.ChangedFiles, event.Paths...)

		switch event.Type {
		case ChangeTypeOntology:
			// A new ontology changes the graph, so closures are recomputed
			analysis.ReloadOntology = true
		case ChangeTypeAnnotations:
			// The cached ontology and closures stay valid
		}

		if !seen[event.Type] {
			seen[event.Type] = true
			kinds = append(kinds, event.Type.String())
		}
	}

	if len(kinds) > 0 {
		analysis.Reason = strings.Join(kinds, " and ") + " changed"
	}
	return analysis
}
