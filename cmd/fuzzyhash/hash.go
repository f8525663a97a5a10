package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hoangsonww/fuzzyhash/internal/batch"
	"github.com/hoangsonww/fuzzyhash/internal/cache"
	"github.com/hoangsonww/fuzzyhash/internal/ctph"
	"github.com/hoangsonww/fuzzyhash/internal/monitoring"
	"github.com/hoangsonww/fuzzyhash/internal/rolling"
)

// hashParams are the -w/-d/-p flags. A flag left unset takes the config
// value; an explicit value, zero included, is passed through and validated.
type hashParams struct {
	cmd       *cobra.Command
	window    int
	digest    int
	precision int
}

func (p *hashParams) bind(cmd *cobra.Command, withDigest, withPrecision bool) {
	p.cmd = cmd
	cmd.Flags().IntVarP(&p.window, "window", "w", 0, "rolling window size (default from config)")
	if withDigest {
		cmd.Flags().IntVarP(&p.digest, "digest", "d", 0, "pieces per block and trigger modulus (default from config)")
	}
	if withPrecision {
		cmd.Flags().IntVarP(&p.precision, "precision", "p", 0, "hash width in bits: 8, 16, 32 or 64 (default from config)")
	}
}

func (p *hashParams) value(name string, flag, fallback int) int {
	if p.cmd != nil && p.cmd.Flags().Changed(name) {
		return flag
	}
	return fallback
}

func (p *hashParams) windowOr(fallback int) int { return p.value("window", p.window, fallback) }
func (p *hashParams) digestOr(fallback int) int { return p.value("digest", p.digest, fallback) }
func (p *hashParams) precisionOr(fallback int) int { return p.value("precision", p.precision, fallback) }

// pick returns flag unless it is zero.
func pick(flag, fallback int) int {
	if flag != 0 {
		return flag
	}
	return fallback
}

func (a *app) byteHasher(p hashParams) (*ctph.Hasher, error) {
	prec, err := rolling.ParsePrecision(p.precisionOr(a.cfg.Hashing.Precision))
	if err != nil {
		return nil, err
	}
	return ctph.New(
		p.windowOr(a.cfg.Hashing.WindowSize),
		p.digestOr(a.cfg.Hashing.DigestSize),
		prec,
	)
}

func (a *app) tokenHasher(p hashParams) (*ctph.TokenHasher, error) {
	return ctph.NewTokenHasher(
		p.windowOr(a.cfg.Hashing.TokenWindowSize),
		p.digestOr(a.cfg.Hashing.TokenDigestSize),
	)
}

func (a *app) hashCommand() *cobra.Command {
	var (
		params     hashParams
		decompress string
		literal    string
	)

	cmd := &cobra.Command{
		Use:   "hash [files...]",
		Short: "Print the fuzzy digest of each file (stdin when none or -)",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.byteHasher(params)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("string") {
				if len(args) > 0 {
					return usagef("--string does not take file arguments")
				}
				start := time.Now()
				digest := h.Compute([]byte(literal))
				monitoring.GetMetrics().RecordHashed(uint64(len(literal)), time.Since(start))
				fmt.Fprintln(a.stdout, digest)
				return nil
			}

			r := a.reader(decompress)
			files, err := inputs(args)
			if err != nil {
				return err
			}
			docs := make([]batch.Document, len(files))
			for i, path := range files {
				path := path
				docs[i] = batch.Document{Name: path, Load: func() ([]byte, error) { return r.ReadFile(path) }}
			}

			results, err := batch.New(h, batch.Options{Workers: a.cfg.Batch.Workers, Cache: a.cache}).HashAll(a.ctx, docs)
			if err != nil {
				return err
			}
			return a.printResults(results)
		},
	}
	params.bind(cmd, true, true)
	cmd.Flags().StringVar(&decompress, "decompress", "", "auto, none, gzip or zstd (default from config)")
	cmd.Flags().StringVar(&literal, "string", "", "hash this string instead of files")
	return cmd
}

// printResults writes "digest  name" lines and reports how many inputs failed.
func (a *app) printResults(results []batch.Result) error {
	var failed int
	var first error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = r.Err
			}
			fmt.Fprintf(a.stderr, "fuzzyhash: %v\n", r.Err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s  %s\n", r.Digest, r.Name)
	}
	if failed == 1 {
		return first
	}
	if failed > 1 {
		return fmt.Errorf("%d of %d inputs failed: %w", failed, len(results), first)
	}
	return nil
}

func (a *app) tokensCommand() *cobra.Command {
	var params hashParams

	cmd := &cobra.Command{
		Use:   "tokens [files...]",
		Short: "Print the fuzzy digest of token-id files (JSON arrays or JSON Lines)",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.tokenHasher(params)
			if err != nil {
				return err
			}
			r := a.reader("")
			files, err := inputs(args)
			if err != nil {
				return err
			}

			var results []batch.Result
			for _, path := range files {
				if err := a.ctx.Err(); err != nil {
					return err
				}
				res := batch.Result{Name: path}
				tokens, err := r.ReadTokens(path)
				if err != nil {
					monitoring.GetMetrics().RecordError("input")
					res.Err = err
				} else {
					res.Digest = a.hashTokens(h, tokens)
					res.Size = len(tokens)
				}
				results = append(results, res)
			}
			return a.printResults(results)
		},
	}
	params.bind(cmd, true, false)
	return cmd
}

func (a *app) hashTokens(h *ctph.TokenHasher, tokens []int64) string {
	start := time.Now()
	key := cache.TokensKey(h.WindowSize(), h.DigestSize(), tokens)
	digest := a.cache.GetOrCompute(key, func() string { return h.Compute(tokens) })
	monitoring.GetMetrics().RecordTokensHashed(uint64(len(tokens)), time.Since(start))
	return digest
}

func (a *app) fingerprintCommand() *cobra.Command {
	var (
		params hashParams
		tokens bool
	)

	cmd := &cobra.Command{
		Use:   "fingerprint [files...]",
		Short: "Print the final rolling-hash value of each input, base64 encoded",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.reader("")
			window := params.windowOr(a.cfg.Hashing.WindowSize)
			if tokens {
				window = params.windowOr(a.cfg.Hashing.TokenWindowSize)
			}
			prec, err := rolling.ParsePrecision(params.precisionOr(a.cfg.Hashing.Precision))
			if err != nil {
				return err
			}

			files, err := inputs(args)
			if err != nil {
				return err
			}

			var results []batch.Result
			for _, path := range files {
				res := batch.Result{Name: path}
				if tokens {
					var seq []int64
					if seq, res.Err = r.ReadTokens(path); res.Err == nil {
						res.Digest, res.Err = rolling.FingerprintTokens(seq, window)
					}
				} else {
					var data []byte
					if data, res.Err = r.ReadFile(path); res.Err == nil {
						res.Digest, res.Err = rolling.Fingerprint(data, window, prec)
					}
				}
				results = append(results, res)
			}
			return a.printResults(results)
		},
	}
	params.bind(cmd, false, true)
	cmd.Flags().BoolVar(&tokens, "tokens", false, "inputs are token-id files")
	return cmd
}

func (a *app) compareCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "compare <digestA> <digestB>",
		Short: "Print the similarity of two digests, from 0 to 1",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strict {
				for _, d := range args {
					if _, err := ctph.ParseDigest(d); err != nil {
						return err
					}
				}
			}
			monitoring.GetMetrics().RecordComparison()
			fmt.Fprintf(a.stdout, "%.6f\n", ctph.Similarity(args[0], args[1]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "reject malformed digests instead of scoring them 0")
	return cmd
}
