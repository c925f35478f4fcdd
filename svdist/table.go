package svdist

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// The distance table is tab-separated text: a fingerprint comment, a header
// row naming every column, then one DIST row per pair with the raw measures
// followed by the derived tuple.
const (
	tableRowType      = "DIST"
	tableHeader       = "ROWTYPE\tID1\tID2\tEDITDIST\tMAXSHIFT\tALTLENDIFF\tALTLENAVG\tSIZEDIFF\tSIZEAVG\tPOSDIFF\tRELSHIFT\tRELSIZEDIFF\tRELDIST"
	fingerprintPrefix = "#fingerprint="
)

// WriteTable saves every recorded pair to path, bgzip-compressed when the
// path ends in .gz. The fingerprint of the swept variant set goes in a
// leading comment so a later run can refuse a stale table.
func WriteTable(ctx context.Context, path string, store *Store, fingerprint uint64) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, out, &err)
	var w *tsv.Writer
	if strings.HasSuffix(path, ".gz") {
		bgz := bgzf.NewWriter(out.Writer(ctx), 1)
		defer func() {
			if e := bgz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = tsv.NewWriter(bgz)
	} else {
		w = tsv.NewWriter(out.Writer(ctx))
	}
	w.WriteString(fmt.Sprintf("%s%016x", fingerprintPrefix, fingerprint))
	if err = w.EndLine(); err != nil {
		return err
	}
	w.WriteString(tableHeader)
	if err = w.EndLine(); err != nil {
		return err
	}
	err = store.VisitPairs(func(n1, n2 NodeID, e Entry) error {
		id1, id2 := store.Name(n1), store.Name(n2)
		if id2 < id1 {
			id1, id2 = id2, id1
		}
		w.WriteString(tableRowType)
		w.WriteString(id1)
		w.WriteString(id2)
		w.WriteString(strconv.Itoa(e.Raw.EditDist))
		w.WriteString(strconv.Itoa(e.Raw.MaxShift))
		w.WriteString(strconv.Itoa(e.Raw.AltLenDiff))
		w.WriteString(formatFloat(e.Raw.AltLenAvg))
		w.WriteString(strconv.Itoa(e.Raw.SizeDiff))
		w.WriteString(formatFloat(e.Raw.SizeAvg))
		w.WriteString(strconv.Itoa(e.Tuple.PosDiff))
		w.WriteString(formatFloat(e.Tuple.RelShift))
		w.WriteString(formatFloat(e.Tuple.RelSizeDiff))
		w.WriteString(formatFloat(e.Tuple.RelDist))
		return w.EndLine()
	})
	if err != nil {
		return err
	}
	return w.Flush()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// tableRow mirrors one data row. Floats travel as strings because their
// columns double as human-readable output.
type tableRow struct {
	RowType     string `tsv:"ROWTYPE"`
	ID1         string `tsv:"ID1"`
	ID2         string `tsv:"ID2"`
	EditDist    int64  `tsv:"EDITDIST"`
	MaxShift    int64  `tsv:"MAXSHIFT"`
	AltLenDiff  int64  `tsv:"ALTLENDIFF"`
	AltLenAvg   string `tsv:"ALTLENAVG"`
	SizeDiff    int64  `tsv:"SIZEDIFF"`
	SizeAvg     string `tsv:"SIZEAVG"`
	PosDiff     int64  `tsv:"POSDIFF"`
	RelShift    string `tsv:"RELSHIFT"`
	RelSizeDiff string `tsv:"RELSIZEDIFF"`
	RelDist     string `tsv:"RELDIST"`
}

// ReadTable rebuilds a store from a saved distance table. fingerprint must
// match the one recorded when the table was written; a mismatch means the
// table was swept from a different variant set and is fatal. It returns the
// number of pairs loaded.
func ReadTable(ctx context.Context, path string, fingerprint uint64, store *Store) (n int, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	src, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := src.Close(); e != nil && err == nil {
			err = e
		}
	}()
	br := bufio.NewReader(src)
	if err := checkFingerprint(br, path, fingerprint); err != nil {
		return 0, err
	}
	r := tsv.NewReader(br)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	var row tableRow
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return n, errors.E(err, "read distance table", path)
		}
		if row.RowType != tableRowType {
			return n, errors.E(fmt.Sprintf("%s: unexpected row type %q", path, row.RowType))
		}
		e, err := row.entry()
		if err != nil {
			return n, errors.E(err, path)
		}
		if err := store.add(row.ID1, row.ID2, e); err != nil {
			return n, errors.E(err, path, "pair", row.ID1, row.ID2)
		}
		n++
	}
	return n, nil
}

func (row *tableRow) entry() (Entry, error) {
	e := Entry{
		Raw: Raw{
			EditDist:   int(row.EditDist),
			MaxShift:   int(row.MaxShift),
			AltLenDiff: int(row.AltLenDiff),
			SizeDiff:   int(row.SizeDiff),
		},
		Tuple: Tuple{PosDiff: int(row.PosDiff)},
	}
	var err error
	if e.Raw.AltLenAvg, err = strconv.ParseFloat(row.AltLenAvg, 64); err != nil {
		return Entry{}, err
	}
	if e.Raw.SizeAvg, err = strconv.ParseFloat(row.SizeAvg, 64); err != nil {
		return Entry{}, err
	}
	if e.Tuple.RelShift, err = strconv.ParseFloat(row.RelShift, 64); err != nil {
		return Entry{}, err
	}
	if e.Tuple.RelSizeDiff, err = strconv.ParseFloat(row.RelSizeDiff, 64); err != nil {
		return Entry{}, err
	}
	if e.Tuple.RelDist, err = strconv.ParseFloat(row.RelDist, 64); err != nil {
		return Entry{}, err
	}
	// The shared denominator is not its own column: it is the smaller of the
	// two size magnitudes, recoverable exactly from their mean and
	// difference.
	e.Raw.SharedDenom = sharedDenom(e.Raw)
	return e, nil
}

func sharedDenom(r Raw) int {
	d := r.SizeAvg - float64(abs(r.SizeDiff))/2
	if d < 1 {
		return 1
	}
	return int(d + 0.5)
}

func checkFingerprint(br *bufio.Reader, path string, want uint64) error {
	b, err := br.Peek(1)
	if err != nil || b[0] != '#' {
		log.Error.Printf("%s: distance table carries no fingerprint; cannot verify it matches the input variants", path)
		return nil
	}
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return err
	}
	line = strings.TrimSuffix(line, "\n")
	if !strings.HasPrefix(line, fingerprintPrefix) {
		log.Error.Printf("%s: distance table carries no fingerprint; cannot verify it matches the input variants", path)
		return nil
	}
	got, err := strconv.ParseUint(strings.TrimPrefix(line, fingerprintPrefix), 16, 64)
	if err != nil {
		return errors.E(err, path, "malformed fingerprint line")
	}
	if got != want {
		return errors.E(fmt.Sprintf("%s: distance table fingerprint %016x does not match the input variants (%016x); it was swept from a different variant set", path, got, want))
	}
	return nil
}
