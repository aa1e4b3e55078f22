package enrich

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/vendors"
)

// Searcher finds the top result for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Result, error)
}

// Raw reports whether a vendor still carries the name derived from its
// statement text.
func Raw(v model.Vendor) bool {
	return v.OriginalName != "" && v.Name == vendors.Display(vendors.Key(v.OriginalName))
}

// RenameVendors searches every raw vendor's name and renames the vendor to
// the suggested business name. It stops at the first ErrDisabled or context
// error and returns the vendors renamed so far. Other search failures are
// logged and skipped.
func RenameVendors(ctx context.Context, s Searcher, dict *vendors.Dictionary, log *zap.Logger) ([]model.Vendor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var renamed []model.Vendor
	for _, v := range dict.Snapshot() {
		if !Raw(v) {
			continue
		}
		r, err := s.Search(ctx, v.Name)
		if err != nil {
			if errors.Is(err, ErrDisabled) || ctx.Err() != nil {
				return renamed, err
			}
			log.Warn("vendor search failed", zap.String("vendor", v.ID), zap.String("name", v.Name), zap.Error(err))
			continue
		}
		name := SuggestName(r)
		if name == "" || vendors.Key(name) == "" || name == v.Name {
			continue
		}
		updated, err := dict.Rename(v.ID, name)
		if err != nil {
			return renamed, fmt.Errorf("renaming vendor %s: %w", v.ID, err)
		}
		log.Info("vendor renamed", zap.String("vendor", v.ID), zap.String("from", v.Name), zap.String("to", name))
		renamed = append(renamed, updated)
	}
	return renamed, nil
}
