package main

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/kosarica/coupon-planner/internal/catalog"
	"github.com/kosarica/coupon-planner/internal/feed"
)

// catalogSource holds the flags shared by commands that read a catalog.
type catalogSource struct {
	items     string
	coupons   string
	encoding  string
	delimiter string
}

func (s *catalogSource) load(ctx context.Context, args []string) (*catalog.Catalog, error) {
	var (
		snap feed.Snapshot
		err  error
	)
	switch {
	case len(args) == 1 && s.items != "":
		return nil, errors.New("pass either a catalog file or --items, not both")
	case len(args) == 1 && feed.IsURL(args[0]):
		snap, err = feed.NewFetcher(cfg.Feed.Fetch).LoadURL(ctx, args[0])
	case len(args) == 1:
		snap, err = feed.LoadFile(args[0])
	case s.items != "":
		opts := feed.CSVOptions{Encoding: feed.Encoding(s.encoding)}
		if s.delimiter != "" {
			r, size := utf8.DecodeRuneInString(s.delimiter)
			if size != len(s.delimiter) {
				return nil, fmt.Errorf("delimiter must be a single character, got %q", s.delimiter)
			}
			opts.Delimiter = r
		}
		snap, err = feed.LoadSplit(s.items, s.coupons, opts)
	default:
		return nil, errors.New("a catalog file or --items is required")
	}
	if err != nil {
		return nil, err
	}

	cat, err := snap.Catalog()
	if err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	logger.Debug().
		Int("items", len(cat.Items())).
		Int("shops", len(cat.Shops())).
		Int("coupons", len(cat.Rules())).
		Str("fingerprint", cat.Fingerprint()).
		Msg("Loaded catalog")
	return cat, nil
}
