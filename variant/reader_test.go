package variant

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCalls(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := strings.Join(lines, "\n") + "\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func scanAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var got []string
	for r.Scan() {
		got = append(got, r.Variant().ID)
	}
	require.NoError(t, r.Err())
	require.NoError(t, r.Close(context.Background()))
	return got
}

func TestReader(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeCalls(t, tempDir, "calls.vcf",
		"##fileformat=VCFv4.1",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		record("1", "100", "ins1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
		record("1", "250", "del1", "T", "<DEL>", ".", "PASS", "SVTYPE=DEL;SVLEN=-100;END=350;REFWIDENED=1:250-350"),
		record("1", "400", "nolen", "T", "TT", ".", "PASS", "SVTYPE=INS;REFWIDENED=1:400-400"),
		record("2", "90", "bnd1", "A", "A[2:500[", ".", "PASS", "SVTYPE=BND"),
	)
	r, err := NewReader(context.Background(), path, Opts{})
	require.NoError(t, err)
	got := scanAll(t, r)
	// nolen is skipped; the breakend passes through as non-comparable.
	assert.Equal(t, []string{"ins1", "del1", "bnd1"}, got)
	assert.Len(t, r.Header(), 2)
	stats := r.Stats()
	assert.Equal(t, 4, stats.Records)
	assert.Equal(t, 3, stats.Variants)
	assert.Equal(t, 1, stats.Skipped)
}

func TestReaderUnsorted(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeCalls(t, tempDir, "unsorted.vcf",
		record("1", "500", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:500-503"),
		record("1", "100", "v2", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
	)
	r, err := NewReader(context.Background(), path, Opts{})
	require.NoError(t, err)
	for r.Scan() {
	}
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "not position-sorted")
	require.NoError(t, r.Close(context.Background()))
}

func TestReaderChromRevisit(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeCalls(t, tempDir, "revisit.vcf",
		record("1", "100", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
		record("2", "100", "v2", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=2:100-103"),
		record("1", "900", "v3", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:900-903"),
	)
	r, err := NewReader(context.Background(), path, Opts{})
	require.NoError(t, err)
	for r.Scan() {
	}
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "seen again")
	require.NoError(t, r.Close(context.Background()))
}

func TestReaderDuplicates(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	same := record("1", "100", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103")
	path := writeCalls(t, tempDir, "dup.vcf", same, same)
	r, err := NewReader(context.Background(), path, Opts{})
	require.NoError(t, err)
	got := scanAll(t, r)
	assert.Equal(t, []string{"v1"}, got)
	assert.Equal(t, 1, r.Stats().Dups)

	// The same identifier with different content is fatal.
	path = writeCalls(t, tempDir, "conflict.vcf",
		same,
		record("1", "200", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:200-203"),
	)
	r, err = NewReader(context.Background(), path, Opts{})
	require.NoError(t, err)
	for r.Scan() {
	}
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "appears twice")
	require.NoError(t, r.Close(context.Background()))
}

func TestReaderRegionFilter(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeCalls(t, tempDir, "calls.vcf",
		record("1", "100", "keep", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
		record("2", "100", "drop", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=2:100-103"),
	)
	opts := Opts{Filter: func(chrom string, start, end int) bool { return chrom == "1" }}
	r, err := NewReader(context.Background(), path, opts)
	require.NoError(t, err)
	got := scanAll(t, r)
	assert.Equal(t, []string{"keep"}, got)
	assert.Equal(t, 1, r.Stats().Filtered)
}

func TestReaderStrictLengths(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeCalls(t, tempDir, "calls.vcf",
		record("1", "100", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
	)
	r, err := NewReader(context.Background(), path, Opts{RefLengths: map[string]uint64{"1": 200}})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, scanAll(t, r))

	// Wide interval past the declared chromosome end.
	r, err = NewReader(context.Background(), path, Opts{RefLengths: map[string]uint64{"1": 102}})
	require.NoError(t, err)
	for r.Scan() {
	}
	require.Error(t, r.Err())
	assert.Contains(t, r.Err().Error(), "past the end")
	require.NoError(t, r.Close(context.Background()))

	// Chromosome absent from the index.
	r, err = NewReader(context.Background(), path, Opts{RefLengths: map[string]uint64{"2": 500}})
	require.NoError(t, err)
	for r.Scan() {
	}
	require.Error(t, r.Err())
	require.NoError(t, r.Close(context.Background()))
}

func TestMergeReader(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeCalls(t, tempDir, "a.vcf",
		record("1", "100", "a1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
		record("2", "50", "a2", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=2:50-53"),
	)
	b := writeCalls(t, tempDir, "b.vcf",
		record("1", "70", "b1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:70-73"),
		record("1", "400", "b2", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:400-403"),
	)
	m, err := NewMergeReader(context.Background(), []string{a, b}, Opts{})
	require.NoError(t, err)
	var got []string
	for m.Scan() {
		got = append(got, m.Variant().ID)
	}
	require.NoError(t, m.Err())
	require.NoError(t, m.Close(context.Background()))
	assert.Equal(t, []string{"b1", "a1", "b2", "a2"}, got)
	assert.Equal(t, 4, m.Stats().Variants)
}

func TestMergeReaderCrossFileDuplicate(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	a := writeCalls(t, tempDir, "a.vcf",
		record("1", "100", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
	)
	b := writeCalls(t, tempDir, "b.vcf",
		record("1", "300", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:300-303"),
	)
	m, err := NewMergeReader(context.Background(), []string{a, b}, Opts{})
	if err == nil {
		for m.Scan() {
		}
		err = m.Err()
		require.NoError(t, m.Close(context.Background()))
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appears twice")
}

func TestWriterRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	in := writeCalls(t, tempDir, "calls.vcf",
		"#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO",
		record("1", "100", "v1", "A", "ACGT", ".", "PASS", "SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103"),
	)
	vs, header, err := ReadAll(context.Background(), in, Opts{})
	require.NoError(t, err)
	require.Len(t, vs, 1)

	out := filepath.Join(tempDir, "out.vcf")
	w, err := NewWriter(context.Background(), out)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader(header))
	require.NoError(t, w.Write(vs[0], []string{"ClusterIDs=v1"}, []string{"extra"}))
	require.NoError(t, w.Close(context.Background()))

	data, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	want := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n" +
		record("1", "100", "v1", "A", "ACGT", ".", "PASS",
			"SVTYPE=INS;SVLEN=3;REFWIDENED=1:100-103;ClusterIDs=v1", "extra") + "\n"
	assert.Equal(t, want, string(data))
}
