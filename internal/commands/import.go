package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/auditlog"
	"github.com/cleared-dev/tally/internal/dedup"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/statements"
	"github.com/cleared-dev/tally/internal/vendors"
)

func newImportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Parse, categorize and store the statements in import/",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.open(cmd)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), w, statements.DefaultRegistry(), cmd.OutOrStdout())
		},
	}
}

// fileResult summarizes one imported statement.
type fileResult struct {
	institution string
	added       []model.Transaction
	duplicates  int
	lineErrors  int
	ambiguous   int
	errors      int
}

func runImport(ctx context.Context, w *workspace, reg *statements.Registry, out io.Writer) error {
	files, err := statements.Scan(w.root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(out, "No statements to import.")
		return nil
	}

	fp := w.fingerprinter()
	var (
		added  []model.Transaction
		failed int
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := w.log.With(zap.String("file", f.Name))

		res, err := importFile(w, reg, fp, f, log)
		if err != nil {
			failed++
			log.Error("import failed", zap.Error(err))
			fmt.Fprintf(out, "%s: %v\n", f.Name, err)
			continue
		}
		if err := statements.MarkProcessed(w.root, f.Name); err != nil {
			return err
		}
		added = append(added, res.added...)
		fmt.Fprintf(out, "%s: %s, %d imported, %d duplicates skipped, %d unreadable lines, %d ambiguous, %d allocation errors\n",
			f.Name, res.institution, len(res.added), res.duplicates, res.lineErrors, res.ambiguous, res.errors)
	}

	if err := w.save(); err != nil {
		return err
	}
	now := time.Now()
	entries := make([]auditlog.Entry, len(added))
	for i, txn := range added {
		entries[i] = auditlog.FromTransaction(now, auditlog.ActorImport, auditlog.ActionAllocate, txn)
	}
	if err := auditlog.Append(w.root, entries); err != nil {
		w.log.Error("writing allocation log", zap.Error(err))
	}
	if _, err := w.commit(ctx, fmt.Sprintf("import: %d transactions from %d file(s)", len(added), len(files)-failed)); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be imported", failed, len(files))
	}
	return nil
}

// importFile parses one statement, drops transactions already stored,
// allocates the rest and adds them to the store. Vendors learned from the
// file are kept only when the whole file is stored.
func importFile(w *workspace, reg *statements.Registry, fp dedup.Fingerprinter, f statements.FileInfo, log *zap.Logger) (fileResult, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fileResult{}, fmt.Errorf("reading statement: %w", err)
	}
	st, err := reg.Parse(string(data), f.Path)
	if err != nil {
		return fileResult{}, err
	}
	for _, le := range st.Errors {
		log.Warn("unreadable line", zap.Int("line", le.Line), zap.String("text", le.Text), zap.Error(le.Err))
	}

	txns := st.Transactions
	for i := range txns {
		txns[i].NormalizedDescription = vendors.Key(txns[i].Description)
	}
	kept, dropped := fp.Filter(w.store.All(), txns)

	dict := vendors.NewDictionary(w.dictionary().Snapshot())
	alloc := w.allocatorFor(dict)
	res := fileResult{institution: st.Institution, duplicates: len(dropped), lineErrors: len(st.Errors)}
	for i := range kept {
		txn := &kept[i]
		if txn.Warning == model.WarningAmbiguousDirection {
			res.ambiguous++
		}
		a, err := alloc.Allocate(*txn)
		if err != nil {
			log.Warn("allocation failed", zap.String("description", txn.Description), zap.Error(err))
			alloc.Fallback(*txn).Apply(txn)
			res.errors++
			continue
		}
		if a, err = alloc.Record(dict, a); err != nil {
			return fileResult{}, err
		}
		a.Apply(txn)
	}

	stored, err := w.store.Add(kept)
	if err != nil {
		return fileResult{}, fmt.Errorf("storing transactions: %w", err)
	}
	w.setDictionary(dict)
	res.added = stored
	return res, nil
}
