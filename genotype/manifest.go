package genotype

import (
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// SampleInfo is one row of the cohort manifest.
type SampleInfo struct {
	Name         string `tsv:"SAMPLE"`
	VariantsPath string `tsv:"VARIANTS"`
	RegionsPath  string `tsv:"HOMREFBED"`
}

// LoadManifest reads the cohort manifest: a tab-separated table with header
// columns SAMPLE, VARIANTS, and HOMREFBED naming each sample, its call set,
// and its homozygous-reference BED (empty when the sample has none). Sample
// names must be unique.
func LoadManifest(ctx context.Context, path string) (infos []SampleInfo, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	src, _ := compress.NewReader(in.Reader(ctx))
	defer func() {
		if e := src.Close(); e != nil && err == nil {
			err = e
		}
	}()
	r := tsv.NewReader(src)
	r.HasHeaderRow = true
	r.UseHeaderNames = true
	seen := map[string]bool{}
	var row SampleInfo
	for {
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "read manifest", path)
		}
		if row.Name == "" || row.VariantsPath == "" {
			return nil, errors.E(fmt.Sprintf("%s: manifest row %d is missing a sample name or variants path", path, len(infos)+1))
		}
		if seen[row.Name] {
			return nil, errors.E(fmt.Sprintf("%s: sample %s appears twice in the manifest", path, row.Name))
		}
		seen[row.Name] = true
		infos = append(infos, row)
	}
	if len(infos) == 0 {
		return nil, errors.E(fmt.Sprintf("%s: empty manifest", path))
	}
	return infos, nil
}
