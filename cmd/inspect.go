package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lodzlive/transit/wire"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Dumps the raw wire fields of a binary feed file",
	Long:  "Scans a protobuf file without any schema and prints every field record, corrupt ones included. Useful when a feed refuses to decode.",
	Args:  cobra.ExactArgs(1),
	RunE:  inspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func inspect(cmd *cobra.Command, args []string) error {
	buf, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	fields := wire.Decode(buf)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tFIELD\tTYPE\tVALUE")
	for _, f := range fields {
		if f.Err != nil {
			fmt.Fprintf(w, "%d\t-\t-\tERROR: %v\n", f.Offset, f.Err)
			continue
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", f.Offset, f.Number, f.Type, fieldValue(f))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d fields in %d bytes\n", len(fields), len(buf))
	return nil
}

func fieldValue(f wire.Field) string {
	switch f.Type {
	case wire.TypeVarint:
		return fmt.Sprintf("%d", f.Varint)
	case wire.TypeFixed64:
		return fmt.Sprintf("%g", f.Float64)
	case wire.TypeFixed32:
		return fmt.Sprintf("%g", f.Float32)
	case wire.TypeLengthDelimited:
		const max = 40
		if len(f.Bytes) > max {
			return fmt.Sprintf("%d bytes: %q...", len(f.Bytes), f.Bytes[:max])
		}
		return fmt.Sprintf("%d bytes: %q", len(f.Bytes), f.Bytes)
	}
	return "?"
}
