package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"

	"github.com/harshithgowdakt/granulestream/internal/column"
	"github.com/harshithgowdakt/granulestream/internal/compression"
	"github.com/harshithgowdakt/granulestream/internal/native"
)

var genKinds = []string{"click", "view", "purchase", "signup", "logout"}

func newGenCmd() *cobra.Command {
	var (
		rows int
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "gen <file>",
		Short: "Write a synthetic events file in native block format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			codec, err := compression.CodecByName(cfg.Compression)
			if err != nil {
				return err
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			w := native.NewWriter(f, codec)
			rng := rand.New(rand.NewPCG(seed, seed))

			blocks := 0
			for from := 0; from < rows; from += cfg.BlockRows {
				n := min(cfg.BlockRows, rows-from)
				if err := w.WriteBlock(genBlock(rng, uint64(from), n)); err != nil {
					_ = f.Close()
					return fmt.Errorf("write block %d: %w", blocks, err)
				}
				blocks++
			}
			if err := f.Close(); err != nil {
				return err
			}

			logger.Info().
				Str("file", args[0]).
				Int("rows", rows).
				Int("blocks", blocks).
				Str("compression", cfg.Compression).
				Msg("generated")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&rows, "rows", 100_000, "Number of rows to generate")
	flags.Uint64Var(&seed, "seed", 1, "Random seed")
	flags.Int("block-rows", 8192, "Rows per block")
	flags.String("compression", "lz4", "Block codec (lz4, none)")
	return cmd
}

// genBlock builds n event rows with ids starting at firstID.
func genBlock(rng *rand.Rand, firstID uint64, n int) *column.Block {
	ids := make([]uint64, n)
	kinds := make([]string, n)
	values := make([]float64, n)
	ts := make([]uint32, n)
	const epoch = 1_700_000_000
	for i := range n {
		ids[i] = firstID + uint64(i)
		kinds[i] = genKinds[rng.IntN(len(genKinds))]
		values[i] = float64(rng.IntN(100_000)) / 100
		ts[i] = epoch + uint32(ids[i])
	}
	return column.NewBlock(
		[]string{"id", "kind", "value", "ts"},
		[]column.Column{
			column.NewUInt64(ids...),
			column.NewString(kinds...),
			column.NewFloat64(values...),
			column.NewDateTime(ts...),
		},
	)
}
