package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kocubinski/avl-ledger/avl"
	"github.com/kocubinski/avl-ledger/checkpoint"
	"github.com/kocubinski/avl-ledger/ledger"
)

func dumpCommand() *cobra.Command {
	var (
		checkpointDir string
		dot           bool
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "restore a checkpoint, verify its tree and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if checkpointDir == "" {
				return fmt.Errorf("--checkpoint-dir is required")
			}
			store, err := checkpoint.Open[[]byte](checkpointDir, checkpoint.BytesCodec{})
			if err != nil {
				return err
			}
			defer store.Close()

			led, err := store.Restore(ledger.DefaultOptions())
			if err != nil {
				return err
			}
			snap := led.Current()
			if err := avl.Verify(snap.Root()); err != nil {
				return fmt.Errorf("checkpoint at version %d is corrupt: %w", snap.Version(), err)
			}

			out := cmd.OutOrStdout()
			if dot {
				fmt.Fprintln(out, avl.RenderDotGraph(snap.Root()))
				return nil
			}

			var valueBytes uint64
			for _, v := range snap.All() {
				valueBytes += uint64(len(v))
			}
			fmt.Fprintf(out, "version=%d keys=%s height=%d values=%s\n",
				snap.Version(),
				humanize.Comma(int64(snap.Len())),
				avl.Height(snap.Root()),
				humanize.Bytes(valueBytes))

			n := 0
			for k, v := range snap.All() {
				if n >= limit {
					break
				}
				fmt.Fprintf(out, "%x => %s\n", k, humanize.Bytes(uint64(len(v))))
				n++
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "checkpoint directory written by run")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the tree as a graphviz dot graph")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries to print")
	return cmd
}
