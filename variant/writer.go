// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package variant

import (
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
)

// Writer emits call-set records as tab-separated text, bgzip-compressed when
// the path ends in .gz. Output columns mirror the input shape: CHROM POS ID
// REF ALT QUAL FILTER INFO, with annotations appended to the attribute column
// and any further columns after it.
type Writer struct {
	out file.File
	bgz *bgzf.Writer
	w   *tsv.Writer
}

// NewWriter creates path and prepares it for records.
func NewWriter(ctx context.Context, path string) (*Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	w := &Writer{out: out}
	if strings.HasSuffix(path, ".gz") {
		w.bgz = bgzf.NewWriter(out.Writer(ctx), 1)
		w.w = tsv.NewWriter(w.bgz)
	} else {
		w.w = tsv.NewWriter(out.Writer(ctx))
	}
	return w, nil
}

// WriteHeader emits '#'-prefixed lines verbatim, one per row.
func (w *Writer) WriteHeader(lines []string) error {
	for _, line := range lines {
		w.w.WriteString(line)
		if err := w.w.EndLine(); err != nil {
			return err
		}
	}
	return nil
}

// Write emits one record. extraInfo entries are appended to the attribute
// column; extraCols become additional tab-separated columns.
func (w *Writer) Write(v *Variant, extraInfo, extraCols []string) error {
	w.w.WriteString(v.Chrom)
	w.w.WriteUint32(uint32(v.Pos))
	w.w.WriteString(v.ID)
	w.w.WriteString(v.Ref)
	w.w.WriteString(v.Alt)
	w.w.WriteString(v.Qual)
	w.w.WriteString(v.Filter)
	info := v.Info
	if len(extraInfo) > 0 {
		if info == "" || info == "." {
			info = strings.Join(extraInfo, ";")
		} else {
			info += ";" + strings.Join(extraInfo, ";")
		}
	}
	w.w.WriteString(info)
	for _, c := range extraCols {
		w.w.WriteString(c)
	}
	return w.w.EndLine()
}

// Close flushes buffered rows and closes the output.
func (w *Writer) Close(ctx context.Context) (err error) {
	err = w.w.Flush()
	if w.bgz != nil {
		if e := w.bgz.Close(); e != nil && err == nil {
			err = e
		}
	}
	if e := w.out.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}
