package interval

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func TestReadBED(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	content := "# homozygous-reference regions for sample s1\n" +
		"chr1\t100\t200\tname\t0\t+\n" +
		"chr1\t150\t300\n" +
		"\n" +
		"chr2\t0\t50\n"
	want := []Entry{
		{RefName: "chr1", Start: 100, End: 200},
		{RefName: "chr1", Start: 150, End: 300},
		{RefName: "chr2", Start: 0, End: 50},
	}

	bedPath := filepath.Join(tmpDir, "regions.bed")
	expect.NoError(t, ioutil.WriteFile(bedPath, []byte(content), 0644))
	entries, err := ReadBED(ctx, bedPath)
	expect.NoError(t, err)
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("got %v, want %v", entries, want)
	}

	gzPath := filepath.Join(tmpDir, "regions.bed.gz")
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte(content))
	expect.NoError(t, err)
	expect.NoError(t, gz.Close())
	expect.NoError(t, ioutil.WriteFile(gzPath, buf.Bytes(), 0644))
	entries, err = ReadBED(ctx, gzPath)
	expect.NoError(t, err)
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("got %v, want %v", entries, want)
	}
}

func TestReadBEDMalformed(t *testing.T) {
	for _, content := range []string{
		"chr1\t100\n",      // too few columns
		"chr1\t-5\t100\n",  // negative start
		"chr1\t200\t100\n", // end before start
		"chr1\tx\t100\n",   // unparseable start
	} {
		if _, err := readBED(strings.NewReader(content)); err == nil {
			t.Errorf("want error for %q", content)
		}
	}
}
