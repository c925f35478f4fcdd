// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package window_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/grailbio/sv/variant"
	"github.com/grailbio/sv/window"
	"github.com/grailbio/testutil/expect"
)

func mkv(chrom string, pos int, id string) *variant.Variant {
	return &variant.Variant{Chrom: chrom, Pos: pos, End: pos, ID: id}
}

func slide(t *testing.T, w *window.Window, v *variant.Variant) []string {
	var seen []string
	err := w.Slide(v, func(m *variant.Variant) error {
		seen = append(seen, m.ID)
		return nil
	})
	expect.NoError(t, err)
	return seen
}

func TestSlide(t *testing.T) {
	w := window.New(1000)
	expect.EQ(t, slide(t, w, mkv("A", 100, "a1")), []string(nil))
	expect.EQ(t, w.Len(), 1)
	expect.EQ(t, slide(t, w, mkv("A", 150, "a2")), []string{"a1"})
	expect.EQ(t, w.Len(), 2)

	// A distant position on the same chromosome flushes everything before any
	// comparison happens.
	expect.EQ(t, slide(t, w, mkv("A", 500000, "a3")), []string(nil))
	expect.EQ(t, w.Len(), 1)

	// Likewise a chromosome change, even though the new position is far below
	// the old ones.
	expect.EQ(t, slide(t, w, mkv("B", 10, "b1")), []string(nil))
	expect.EQ(t, w.Len(), 1)
}

func TestSlideBoundary(t *testing.T) {
	w := window.New(50)
	slide(t, w, mkv("1", 100, "v1"))
	// Exactly maxDist away still counts.
	expect.EQ(t, slide(t, w, mkv("1", 150, "v2")), []string{"v1"})
	// One past evicts.
	expect.EQ(t, slide(t, w, mkv("1", 201, "v3")), []string{"v2"})
	expect.EQ(t, w.Len(), 2)
}

func TestGrow(t *testing.T) {
	// More members than the initial ring capacity, all within reach.
	w := window.New(1 << 20)
	total := 0
	for i := 0; i < 100; i++ {
		v := mkv("1", 1000+i, fmt.Sprintf("v%03d", i))
		total += len(slide(t, w, v))
	}
	expect.EQ(t, w.Len(), 100)
	expect.EQ(t, total, 100*99/2)

	w.Reset()
	expect.EQ(t, w.Len(), 0)
}

func TestVisitError(t *testing.T) {
	w := window.New(1000)
	slide(t, w, mkv("1", 100, "v1"))
	boom := errors.New("boom")
	err := w.Slide(mkv("1", 120, "v2"), func(m *variant.Variant) error { return boom })
	expect.EQ(t, err, boom)
	// The newcomer was not added.
	expect.EQ(t, w.Len(), 1)
}
