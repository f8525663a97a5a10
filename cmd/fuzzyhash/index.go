package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoangsonww/fuzzyhash/internal/crypto"
	"github.com/hoangsonww/fuzzyhash/internal/index"
)

func (a *app) indexCommand() *cobra.Command {
	var (
		path   string
		tokens bool
		params hashParams
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Store digests and query them for near duplicates",
	}
	cmd.PersistentFlags().StringVar(&path, "index", "", "index database path (default from config)")

	open := func() (*index.Index, error) {
		p := a.cfg.Index.Path
		if path != "" {
			p = path
		}
		ix, err := index.Open(p, index.Options{Compress: *a.cfg.Index.CompressDigests})
		if err != nil {
			return nil, err
		}
		a.shutdown.RegisterHook("close-index", 10, 5*time.Second, func(context.Context) error {
			return ix.Close()
		})
		return ix, nil
	}
	kind := func() index.Kind {
		if tokens {
			return index.KindTokens
		}
		return index.KindBytes
	}

	// digestOf hashes one input according to --tokens and returns its digest
	// and default id.
	digestOf := func(file string) (digest, id string, err error) {
		r := a.reader("")
		if tokens {
			h, err := a.tokenHasher(params)
			if err != nil {
				return "", "", err
			}
			seq, err := r.ReadTokens(file)
			if err != nil {
				return "", "", err
			}
			return a.hashTokens(h, seq), crypto.EncodeKey(crypto.HashTokens(seq))[:16], nil
		}

		h, err := a.byteHasher(params)
		if err != nil {
			return "", "", err
		}
		data, err := r.ReadFile(file)
		if err != nil {
			return "", "", err
		}
		return h.Compute(data), crypto.ShortID(data), nil
	}

	add := &cobra.Command{
		Use:   "add [id] <file>",
		Short: "Hash a file and store its digest (id defaults to a content key)",
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[len(args)-1]
			digest, id, err := digestOf(file)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				id = args[0]
			}
			ix, err := open()
			if err != nil {
				return err
			}
			if err := ix.Put(id, kind(), digest); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s  %s\n", id, digest)
			return nil
		},
	}
	params.bind(add, true, true)

	var (
		threshold float64
		limit     int
	)
	query := &cobra.Command{
		Use:   "query <file>",
		Short: "List stored entries similar to a file, best first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Index.Threshold
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.Index.MaxResults
			}
			if threshold < 0 || threshold > 1 {
				return usagef("--threshold must be between 0 and 1, got %v", threshold)
			}
			digest, _, err := digestOf(args[0])
			if err != nil {
				return err
			}
			ix, err := open()
			if err != nil {
				return err
			}
			matches, err := ix.Query(digest, kind(), threshold, limit)
			if err != nil {
				return err
			}
			for _, m := range matches {
				fmt.Fprintf(a.stdout, "%.6f  %s\n", m.Score, m.ID)
			}
			return nil
		},
	}
	params.bind(query, true, true)
	query.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default from config)")
	query.Flags().IntVar(&limit, "limit", 0, "maximum matches (default from config)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored entries",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := open()
			if err != nil {
				return err
			}
			entries, err := ix.List(kind())
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(a.stdout, "%s  %s\n", e.ID, e.Digest)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a stored entry",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := open()
			if err != nil {
				return err
			}
			return ix.Delete(args[0], kind())
		},
	}

	cmd.PersistentFlags().BoolVar(&tokens, "tokens", false, "operate on token-id files and the token bucket")
	cmd.AddCommand(add, query, list, remove)
	return cmd
}
