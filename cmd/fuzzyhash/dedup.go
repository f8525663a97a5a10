package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoangsonww/fuzzyhash/internal/batch"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
)

func (a *app) dedupCommand() *cobra.Command {
	var (
		params    hashParams
		threshold float64
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "dedup <files...>",
		Short: "Hash files in parallel and print near-duplicate pairs",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return usagef("dedup needs at least 2 files, received %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Index.Threshold
			}
			if threshold < 0 || threshold > 1 {
				return usagef("--threshold must be between 0 and 1, got %v", threshold)
			}
			h, err := a.byteHasher(params)
			if err != nil {
				return err
			}
			files, err := inputs(args)
			if err != nil {
				return err
			}

			r := a.reader("")
			docs := make([]batch.Document, len(files))
			for i, path := range files {
				path := path
				docs[i] = batch.Document{Name: path, Load: func() ([]byte, error) { return r.ReadFile(path) }}
			}

			b := batch.New(h, batch.Options{Workers: pick(workers, a.cfg.Batch.Workers), Cache: a.cache})
			results, err := b.HashAll(a.ctx, docs)
			if err != nil {
				return err
			}

			var failed int
			for _, res := range results {
				if res.Err != nil {
					failed++
					fmt.Fprintf(a.stderr, "fuzzyhash: %v\n", res.Err)
				}
			}

			pairs := batch.Pairs(results, threshold)
			monitoring.WithFields(map[string]interface{}{
				"documents": len(results),
				"pairs":     len(pairs),
			}).Info("dedup finished")
			for _, p := range pairs {
				fmt.Fprintf(a.stdout, "%.6f  %s  %s\n", p.Score, p.A, p.B)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d inputs failed", failed, len(results))
			}
			return nil
		},
	}
	params.bind(cmd, true, true)
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel hashing workers (default from config)")
	return cmd
}
