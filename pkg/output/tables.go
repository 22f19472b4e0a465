package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ritzau/gene2go-expander/pkg/annotation"
	"github.com/ritzau/gene2go-expander/pkg/closure"
	"github.com/ritzau/gene2go-expander/pkg/summary"
)

// Artifact file names written to the output directory.
const (
	ClosureFile  = "related_go_ids_all.csv"
	ExpandedFile = "gene2go_expanded.csv"
	SummaryFile  = "gene2go_summary.csv"
)

// WriteClosureTable writes one go_id,related_goids row per entry. The related
// ids are the full sorted closure, including the term itself.
func WriteClosureTable(w io.Writer, entries []closure.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"go_id", "related_goids"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Term, strings.Join(e.Members, summary.Separator)}); err != nil {
			return fmt.Errorf("writing closure of %s: %w", e.Term, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryTable writes the gene summaries under the annotation column names.
func WriteSummaryTable(w io.Writer, summaries []summary.GeneSummary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(annotation.Columns); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			strconv.Itoa(s.TaxID),
			s.GeneID,
			s.GOIDs,
			s.Evidence,
			s.Qualifier,
			s.GOTerms,
			s.PubMed,
			s.Category,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing summary of gene %s: %w", s.GeneID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Artifact is one table written to the output directory.
type Artifact struct {
	Name  string
	Write func(io.Writer) error
}

// WriteArtifacts writes every artifact to dir and returns their paths. All
// tables are first written to temporary files; they are renamed into place
// only after every write succeeded, so a failed run leaves the previous
// tables untouched.
func WriteArtifacts(dir string, artifacts []Artifact) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	temps := make([]string, 0, len(artifacts))
	defer func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}()

	for _, a := range artifacts {
		tmp, err := stage(dir, a)
		if tmp != "" {
			temps = append(temps, tmp)
		}
		if err != nil {
			return nil, err
		}
	}

	paths := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.Rename(temps[i], path); err != nil {
			return nil, fmt.Errorf("renaming %s: %w", a.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// stage writes a to a temporary file in dir and returns its name.
func stage(dir string, a Artifact) (string, error) {
	tmp, err := os.CreateTemp(dir, "."+a.Name+".*")
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", a.Name, err)
	}

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return tmp.Name(), fmt.Errorf("creating %s: %w", a.Name, err)
	}
	if err := a.Write(tmp); err != nil {
		_ = tmp.Close()
		return tmp.Name(), fmt.Errorf("writing %s: %w", a.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return tmp.Name(), fmt.Errorf("closing %s: %w", a.Name, err)
	}
	return tmp.Name(), nil
}
