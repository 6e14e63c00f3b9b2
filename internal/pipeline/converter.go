package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/synthstream/exportd/internal/infrastructure/logging"
	"github.com/synthstream/exportd/internal/infrastructure/monitoring"
)

const (
	// sheetName is the single worksheet all rows land on.
	sheetName = "Sheet1"

	// defaultRowCheckpoint is how many committed rows pass between
	// progress/resource checkpoints.
	defaultRowCheckpoint = 100000

	// maxLineBytes caps a single source line; records are a few hundred
	// bytes, so 1MB leaves generous headroom.
	maxLineBytes = 1 << 20
)

// Converter reads a line-delimited JSON stream and commits one spreadsheet
// row per record through a streamed xlsx writer. The column schema is the
// key set of the first record, in that record's key order, and is fixed for
// the remainder of the run: later records are projected into it (missing
// keys become empty cells, extra keys are dropped). Blank lines are skipped;
// a malformed non-blank line aborts the stage.
type Converter struct {
	monitor         *monitoring.Monitor
	metrics         *monitoring.Metrics
	logger          *logging.Logger
	checkpointEvery int
}

// NewConverter creates a converter with the default checkpoint cadence.
func NewConverter(monitor *monitoring.Monitor, metrics *monitoring.Metrics, logger *logging.Logger) *Converter {
	return &Converter{
		monitor:         monitor,
		metrics:         metrics,
		logger:          logger,
		checkpointEvery: defaultRowCheckpoint,
	}
}

// Convert consumes src exactly once, forward-only, and writes the workbook
// to dest. The source with only blank lines (or nothing) yields a valid
// workbook with no rows.
func (c *Converter) Convert(src io.Reader, dest string) (int, error) {
	book := excelize.NewFile()
	defer book.Close()

	sw, err := book.NewStreamWriter(sheetName)
	if err != nil {
		return 0, fmt.Errorf("open stream writer: %w", err)
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var schema []string
	lineNo := 0
	rows := 0

	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if schema == nil {
			schema, err = objectKeys(line)
			if err != nil {
				return rows, fmt.Errorf("malformed record on line %d: %w", lineNo, err)
			}
			header := make([]interface{}, len(schema))
			for i, key := range schema {
				header[i] = key
			}
			if err := setRow(sw, 1, header); err != nil {
				return rows, fmt.Errorf("write header: %w", err)
			}
		}

		var record map[string]interface{}
		if err := sonic.Unmarshal(line, &record); err != nil {
			return rows, fmt.Errorf("malformed record on line %d: %w", lineNo, err)
		}

		cells := make([]interface{}, len(schema))
		for i, key := range schema {
			cells[i] = cellValue(record[key])
		}

		rows++
		if err := setRow(sw, rows+1, cells); err != nil {
			return rows, fmt.Errorf("write row %d: %w", rows, err)
		}

		if rows%c.checkpointEvery == 0 {
			c.logger.Info("Rows converted", zap.Int("rows", rows))
			c.monitor.Checkpoint(fmt.Sprintf("convert rows %d", rows))
		}
	}

	if err := scanner.Err(); err != nil {
		return rows, fmt.Errorf("read line stream: %w", err)
	}

	if err := sw.Flush(); err != nil {
		return rows, fmt.Errorf("flush table: %w", err)
	}
	if err := book.SaveAs(dest); err != nil {
		return rows, fmt.Errorf("save table: %w", err)
	}

	c.metrics.RowsConverted.Add(float64(rows))
	return rows, nil
}

// setRow writes one row starting at column A of the given 1-based row index.
func setRow(sw *excelize.StreamWriter, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return sw.SetRow(cell, values)
}

// objectKeys extracts the top-level keys of a JSON object in document order.
// Maps lose ordering, so the keys come from a token walk instead.
func objectKeys(line []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", keyTok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// cellValue maps a decoded JSON value onto a cell value the stream writer
// accepts. Absent and null values become empty cells; composite values keep
// their JSON rendering.
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return ""
	case string, bool, float64:
		return val
	default:
		raw, err := sonic.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(raw)
	}
}
