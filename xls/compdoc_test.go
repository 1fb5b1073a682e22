package xls

import (
	"bytes"
	"testing"
)

func docStream(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := writeCompDoc(&buf, data); err != nil {
		t.Fatalf("writeCompDoc: %v", err)
	}
	doc, err := openCompDoc(buf.Bytes())
	if err != nil {
		t.Fatalf("openCompDoc: %v", err)
	}
	out, err := doc.stream("Workbook", "Book")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	return out
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i * 7)
	}
	return data
}

// Streams below the mini cutoff land in the ministream.
func TestCompDocMiniStream(t *testing.T) {
	for _, n := range []int{1, 63, 64, 100, 1000, miniCutoff - 1} {
		data := pattern(n)
		if got := docStream(t, data); !bytes.Equal(got, data) {
			t.Fatalf("ministream of %d bytes did not round trip", n)
		}
	}
}

// Streams at or above the cutoff use normal sectors.
func TestCompDocBigStream(t *testing.T) {
	for _, n := range []int{miniCutoff, miniCutoff + 1, sectorSize * 20, sectorSize*20 + 13} {
		data := pattern(n)
		if got := docStream(t, data); !bytes.Equal(got, data) {
			t.Fatalf("stream of %d bytes did not round trip", n)
		}
	}
}

// A stream large enough to need more than 109 FAT sectors forces DIFAT
// sectors into the layout.
func TestCompDocDIFAT(t *testing.T) {
	if testing.Short() {
		t.Skip("large allocation")
	}
	data := pattern(110 * 128 * sectorSize)
	if got := docStream(t, data); !bytes.Equal(got, data) {
		t.Fatal("DIFAT-sized stream did not round trip")
	}
}

func TestOpenCompDocRejectsGarbage(t *testing.T) {
	if _, err := openCompDoc(make([]byte, sectorSize)); err == nil {
		t.Fatal("expected error for zeroed header")
	}
	if _, err := openCompDoc([]byte("short")); err == nil {
		t.Fatal("expected error for short input")
	}
}

func TestStreamMissing(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCompDoc(&buf, pattern(1000)); err != nil {
		t.Fatal(err)
	}
	doc, err := openCompDoc(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.stream("NoSuchStream"); err == nil {
		t.Fatal("expected error for missing stream")
	}
}
