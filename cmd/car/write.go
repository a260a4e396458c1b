package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/car"
)

// maxLineSize bounds a single input line.
const maxLineSize = 64 << 20

func (a *app) newWriteCmd() *cobra.Command {
	var indexPath string

	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Write rows read from stdin to an archive",
		Long: `Write reads rows from stdin, one per line, in the form

  <key> <data>

where the key ends at the first space. Lines without a space are
reported and skipped. The archive is written atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWrite(args[0], indexPath)
		},
	}
	cmd.Flags().StringVar(&indexPath, "index", "", "also write an index file to this path")
	return cmd
}

func (a *app) runWrite(path, indexPath string) error {
	opts, err := a.writeOptions()
	if err != nil {
		return err
	}

	if isTerminal(a.in) {
		fmt.Fprintln(a.errOut, "Enter rows as `<key> <data>`, one per line (Ctrl+D to finish):")
	}

	fw, err := car.CreateFile(path, opts...)
	if err != nil {
		return err
	}

	sc := bufio.NewScanner(a.in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		key, data, ok := strings.Cut(sc.Text(), " ")
		if !ok {
			a.logger.Warn("skipping invalid line, expected `<key> <data>`", "line", line, "text", sc.Text())
			continue
		}
		if err := fw.AddRow(key, []byte(data)); err != nil {
			fw.Abort()
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		fw.Abort()
		return fmt.Errorf("read input: %w", err)
	}

	idx, err := fw.Finalize()
	if errors.Is(err, car.ErrNoRoots) {
		return errors.New("no valid entries provided")
	}
	if err != nil {
		return err
	}
	a.logger.Info("archive written", "path", path, "rows", len(idx), "size", idx.End())

	if indexPath != "" {
		if err := writeSidecar(path, indexPath, idx); err != nil {
			return err
		}
		a.logger.Info("index written", "path", indexPath)
	}

	fmt.Fprintf(a.out, "Done writing %s\n", path)
	return nil
}

// writeSidecar saves idx for the archive at path, tagged with the archive digest.
func writeSidecar(path, indexPath string, idx car.Index) error {
	f, err := os.Open(path) //nolint:gosec // user-supplied path
	if err != nil {
		return err
	}
	defer f.Close()

	d, err := car.Digest(f)
	if err != nil {
		return fmt.Errorf("digest %s: %w", path, err)
	}
	return car.SaveIndexFile(indexPath, car.IndexFile{Archive: d, Entries: idx})
}
