package indexstore

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/imgdex/internal/domain"
	"github.com/kailas-cloud/imgdex/internal/domain/index"
	"github.com/kailas-cloud/imgdex/internal/domain/matrix"
)

// Key/value metadata stored in the parquet footer.
const (
	metaFormat    = "imgdex.format"
	metaModel     = "imgdex.model"
	metaDimension = "imgdex.dimension"

	formatVersion = "1"
)

// recordRow is the on-disk shape of one index record.
type recordRow struct {
	ID     string    `parquet:"id"`
	Path   string    `parquet:"path"`
	Tokens int32     `parquet:"tokens"`
	Dim    int32     `parquet:"dim"`
	Data   []float32 `parquet:"data"`
}

var requiredColumns = []string{"id", "path", "tokens", "dim", "data"}

// Encode serializes an index into a parquet blob, one row per record in index order.
func Encode(idx *index.Index) ([]byte, error) {
	records := idx.Records()
	rows := make([]recordRow, len(records))
	for i := range records {
		emb := records[i].Embedding()
		rows[i] = recordRow{
			ID:     records[i].ID(),
			Path:   records[i].SourcePath(),
			Tokens: int32(emb.Rows()), //nolint:gosec // token counts are small
			Dim:    int32(emb.Dim()),  //nolint:gosec // dimensions are small
			Data:   emb.Data(),
		}
	}

	var buf bytes.Buffer
	err := parquet.Write(&buf, rows,
		parquet.KeyValueMetadata(metaFormat, formatVersion),
		parquet.KeyValueMetadata(metaModel, idx.Model()),
		parquet.KeyValueMetadata(metaDimension, strconv.Itoa(idx.Dimension())),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", domain.ErrIndexIO, err)
	}
	return buf.Bytes(), nil
}

// Decode parses a parquet blob produced by Encode.
// Any structural problem is reported as domain.ErrCorruptIndex.
func Decode(blob []byte) (*index.Index, error) {
	size := int64(len(blob))
	f, err := parquet.OpenFile(bytes.NewReader(blob), size)
	if err != nil {
		return nil, corrupt("open: %v", err)
	}

	if v, ok := f.Lookup(metaFormat); !ok || v != formatVersion {
		return nil, corrupt("unsupported format version %q", v)
	}
	if err := checkColumns(f.Schema()); err != nil {
		return nil, err
	}
	model, _ := f.Lookup(metaModel)
	dimension := 0
	if v, ok := f.Lookup(metaDimension); ok {
		dimension, err = strconv.Atoi(v)
		if err != nil || dimension < 0 {
			return nil, corrupt("bad dimension %q", v)
		}
	}

	rows, err := parquet.Read[recordRow](bytes.NewReader(blob), size)
	if err != nil {
		return nil, corrupt("read rows: %v", err)
	}

	records := make([]index.Record, 0, len(rows))
	for i := range rows {
		rec, err := rowToRecord(&rows[i])
		if err != nil {
			return nil, corrupt("row %d: %v", i, err)
		}
		records = append(records, rec)
	}

	idx, err := index.Restore(model, dimension, records)
	if err != nil {
		return nil, corrupt("%v", err)
	}
	return idx, nil
}

func rowToRecord(row *recordRow) (index.Record, error) {
	if row.Tokens <= 0 || row.Dim <= 0 {
		return index.Record{}, fmt.Errorf("bad shape %dx%d", row.Tokens, row.Dim)
	}
	if len(row.Data) != int(row.Tokens)*int(row.Dim) {
		return index.Record{}, fmt.Errorf("data length %d, want %dx%d", len(row.Data), row.Tokens, row.Dim)
	}
	m, err := matrix.New(int(row.Tokens), int(row.Dim), row.Data)
	if err != nil {
		return index.Record{}, err
	}
	return index.Reconstruct(row.ID, row.Path, m)
}

func checkColumns(schema *parquet.Schema) error {
	have := make(map[string]bool)
	for _, path := range schema.Columns() {
		if len(path) > 0 {
			have[path[0]] = true
		}
	}
	for _, name := range requiredColumns {
		if !have[name] {
			return corrupt("missing column %q", name)
		}
	}
	return nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrCorruptIndex, fmt.Sprintf(format, args...))
}
