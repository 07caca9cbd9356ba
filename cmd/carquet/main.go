// Command carquet prints the structure of parquet files: schema, row
// groups, column chunk encodings and sizes.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"

	"github.com/Vitruves/carquet-go"
	"github.com/Vitruves/carquet-go/format"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file.parquet> ...\n", os.Args[0])
		os.Exit(2)
	}
	exit := 0
	for _, path := range os.Args[1:] {
		if err := describe(path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exit = 1
		}
	}
	os.Exit(exit)
}

func describe(path string) error {
	f, err := carquet.OpenMapped(path)
	if err != nil {
		return err
	}
	defer f.Close()

	metadata := f.Metadata()
	fmt.Printf("%s: %d bytes, %d rows, %d row groups", path, f.Size(), f.NumRows(), len(metadata.RowGroups))
	if metadata.CreatedBy != "" {
		fmt.Printf(", created by %s", metadata.CreatedBy)
	}
	fmt.Println()

	printSchema(f)
	for i := range metadata.RowGroups {
		printRowGroup(f, i, &metadata.RowGroups[i])
	}
	return nil
}

func printSchema(f *carquet.File) {
	w := tablewriter.NewTable(os.Stdout)
	w.Header("column", "type", "repetition", "logical", "max def", "max rep")
	for i := range f.Columns() {
		c := &f.Columns()[i]
		repetition := "REQUIRED"
		if c.Element.RepetitionType != nil {
			repetition = c.Element.RepetitionType.String()
		}
		logical := ""
		if c.Element.LogicalType != nil {
			logical = c.Element.LogicalType.String()
		}
		typ := c.PhysicalType.String()
		if c.PhysicalType == format.FixedLenByteArray {
			typ += "(" + strconv.Itoa(c.TypeLength) + ")"
		}
		w.Append([]string{
			strings.Join(c.Path, "."),
			typ,
			repetition,
			logical,
			strconv.Itoa(c.MaxDefinitionLevel),
			strconv.Itoa(c.MaxRepetitionLevel),
		})
	}
	w.Render()
}

func printRowGroup(f *carquet.File, index int, rowGroup *format.RowGroup) {
	fmt.Printf("\nrow group %d: %d rows, %d bytes compressed\n", index, rowGroup.NumRows, rowGroup.TotalCompressedSize)

	columns := f.Columns()
	w := tablewriter.NewTable(os.Stdout)
	w.Header("column", "codec", "encodings", "values", "compressed", "uncompressed", "min", "max")
	for i := range rowGroup.Columns {
		meta := &rowGroup.Columns[i].MetaData
		encodings := make([]string, len(meta.Encoding))
		for j, e := range meta.Encoding {
			encodings[j] = e.String()
		}
		var column *carquet.Column
		if i < len(columns) {
			column = &columns[i]
		}
		w.Append([]string{
			strings.Join(meta.PathInSchema, "."),
			meta.Codec.String(),
			strings.Join(encodings, ","),
			strconv.FormatInt(meta.NumValues, 10),
			strconv.FormatInt(meta.TotalCompressedSize, 10),
			strconv.FormatInt(meta.TotalUncompressedSize, 10),
			formatStatistic(column, statMin(&meta.Statistics)),
			formatStatistic(column, statMax(&meta.Statistics)),
		})
	}
	w.Render()
}

func statMin(s *format.Statistics) []byte {
	if s.MinValue != nil {
		return s.MinValue
	}
	return s.Min
}

func statMax(s *format.Statistics) []byte {
	if s.MaxValue != nil {
		return s.MaxValue
	}
	return s.Max
}

// formatStatistic renders a statistics value using the column's logical
// type when one helps: UUID columns show the canonical form instead of 16
// raw bytes.
func formatStatistic(column *carquet.Column, value []byte) string {
	if len(value) == 0 {
		return ""
	}
	if column != nil && column.Element.LogicalType != nil && column.Element.LogicalType.UUID != nil {
		if id, err := uuid.FromBytes(value); err == nil {
			return id.String()
		}
	}
	if printable(value) {
		return string(value)
	}
	return fmt.Sprintf("0x%x", value)
}

func printable(value []byte) bool {
	for _, b := range value {
		if b > unicode.MaxASCII || !unicode.IsPrint(rune(b)) {
			return false
		}
	}
	return true
}
