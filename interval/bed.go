package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// Entry is a single BED interval with 0-based half-open coordinates.
type Entry struct {
	RefName string
	Start   PosType
	End     PosType
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.  These simple loops beat the standard library
// string-split functions when only a few leading columns are wanted.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// ReadBED loads the entries of a BED file in file order, without merging,
// sorting, or validating overlap structure.  Blank lines and lines starting
// with '#' are skipped, and columns past the third are ignored.
func ReadBED(ctx context.Context, path string) (entries []Entry, err error) {
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		var gz *gzip.Reader
		if gz, err = gzip.NewReader(reader); err != nil {
			return nil, err
		}
		defer gz.Close() // nolint: errcheck
		reader = gz
	}
	return readBED(reader)
}

func readBED(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) > 0 && curLine[0] == '#' {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			return nil, fmt.Errorf("interval.ReadBED: line %d has fewer tokens than expected", lineIdx)
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		if start < 0 {
			return nil, fmt.Errorf("interval.ReadBED: negative start coordinate on line %d", lineIdx)
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		if end < start || end >= PosTypeMax {
			return nil, fmt.Errorf("interval.ReadBED: invalid coordinate pair on line %d", lineIdx)
		}
		entries = append(entries, Entry{
			// tokens refer into the scanner's buffer, so the name needs a copy.
			RefName: string(tokens[0]),
			Start:   PosType(start),
			End:     PosType(end),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
