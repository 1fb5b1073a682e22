package xls

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// The OLE2 compound document is a little filesystem: 512-byte sectors, a
// file allocation table chaining them, and a directory of named streams.
// Streams smaller than the mini cutoff live in 64-byte minisectors inside a
// ministream owned by the root entry, with their own allocation table.

var compoundSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096

	secFree       = 0xFFFFFFFF
	secEndOfChain = 0xFFFFFFFE
	secFAT        = 0xFFFFFFFD
	secDIFAT      = 0xFFFFFFFC
)

// Directory entry object types.
const (
	dirStream = 2
	dirRoot   = 5
)

// ContainerError is returned when the compound-document container itself is
// malformed, as opposed to the workbook stream inside it.
type ContainerError struct {
	Message string
}

func (e *ContainerError) Error() string { return e.Message }

func containerErrorf(format string, args ...any) *ContainerError {
	return &ContainerError{Message: "xls: " + fmt.Sprintf(format, args...)}
}

// compDoc is a parsed compound document.
type compDoc struct {
	mem        []byte
	fat        []uint32
	miniFAT    []uint32
	miniStream []byte
	dir        []dirEntry
}

type dirEntry struct {
	name        string
	objectType  byte
	startSector uint32
	size        uint32
}

// openCompDoc parses the container header, allocation tables and directory.
func openCompDoc(mem []byte) (*compDoc, error) {
	if len(mem) < sectorSize || !bytes.Equal(mem[:8], compoundSignature) {
		return nil, containerErrorf("not a compound document")
	}
	sectorShift := binary.LittleEndian.Uint16(mem[30:])
	if sectorShift != 9 {
		return nil, containerErrorf("unsupported sector size 2^%d", sectorShift)
	}
	d := &compDoc{mem: mem}

	numFATSectors := binary.LittleEndian.Uint32(mem[44:])
	firstDirSector := binary.LittleEndian.Uint32(mem[48:])
	firstMiniFAT := binary.LittleEndian.Uint32(mem[60:])
	numMiniFAT := binary.LittleEndian.Uint32(mem[64:])
	firstDIFAT := binary.LittleEndian.Uint32(mem[68:])
	numDIFAT := binary.LittleEndian.Uint32(mem[72:])

	// The first 109 FAT sector numbers sit in the header; the rest chain
	// through DIFAT sectors.
	fatSectors := make([]uint32, 0, numFATSectors)
	for i := 0; i < 109; i++ {
		s := binary.LittleEndian.Uint32(mem[76+i*4:])
		if s == secFree || s == secEndOfChain {
			break
		}
		fatSectors = append(fatSectors, s)
	}
	difat := firstDIFAT
	for i := uint32(0); i < numDIFAT && difat != secEndOfChain && difat != secFree; i++ {
		sec, err := d.sector(difat)
		if err != nil {
			return nil, err
		}
		for j := 0; j < sectorSize/4-1; j++ {
			s := binary.LittleEndian.Uint32(sec[j*4:])
			if s == secFree || s == secEndOfChain {
				break
			}
			fatSectors = append(fatSectors, s)
		}
		difat = binary.LittleEndian.Uint32(sec[sectorSize-4:])
	}

	for _, s := range fatSectors {
		sec, err := d.sector(s)
		if err != nil {
			return nil, err
		}
		for j := 0; j < sectorSize/4; j++ {
			d.fat = append(d.fat, binary.LittleEndian.Uint32(sec[j*4:]))
		}
	}

	dirData, err := d.readChain(firstDirSector, 0)
	if err != nil {
		return nil, err
	}
	for off := 0; off+128 <= len(dirData); off += 128 {
		e := parseDirEntry(dirData[off : off+128])
		if e.objectType != 0 {
			d.dir = append(d.dir, e)
		}
	}
	if len(d.dir) == 0 || d.dir[0].objectType != dirRoot {
		return nil, containerErrorf("missing root directory entry")
	}

	if numMiniFAT > 0 {
		miniData, err := d.readChain(firstMiniFAT, 0)
		if err != nil {
			return nil, err
		}
		for off := 0; off+4 <= len(miniData); off += 4 {
			d.miniFAT = append(d.miniFAT, binary.LittleEndian.Uint32(miniData[off:]))
		}
		root := d.dir[0]
		d.miniStream, err = d.readChain(root.startSector, int(root.size))
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parseDirEntry(b []byte) dirEntry {
	nameLen := int(binary.LittleEndian.Uint16(b[64:]))
	if nameLen > 64 {
		nameLen = 64
	}
	name := ""
	if nameLen >= 2 {
		name = decodeUTF16(b[:nameLen-2]) // drop the UTF-16 NUL
	}
	return dirEntry{
		name:        name,
		objectType:  b[66],
		startSector: binary.LittleEndian.Uint32(b[116:]),
		size:        binary.LittleEndian.Uint32(b[120:]),
	}
}

// sector returns the body of a numbered sector; sector 0 starts after the
// 512-byte header.
func (d *compDoc) sector(n uint32) ([]byte, error) {
	start := sectorSize + int(n)*sectorSize
	if start < sectorSize || start+sectorSize > len(d.mem) {
		return nil, containerErrorf("sector %d out of bounds", n)
	}
	return d.mem[start : start+sectorSize], nil
}

// readChain follows a FAT chain from start, returning at most size bytes
// (all of the chain when size is 0).
func (d *compDoc) readChain(start uint32, size int) ([]byte, error) {
	var out []byte
	seen := 0
	for s := start; s != secEndOfChain && s != secFree; {
		sec, err := d.sector(s)
		if err != nil {
			return nil, err
		}
		out = append(out, sec...)
		seen++
		if seen > len(d.mem)/sectorSize+1 {
			return nil, containerErrorf("sector chain loop at %d", s)
		}
		if int(s) >= len(d.fat) {
			return nil, containerErrorf("sector %d not in allocation table", s)
		}
		s = d.fat[s]
	}
	if size > 0 && len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// readMiniChain follows a miniFAT chain through the ministream.
func (d *compDoc) readMiniChain(start uint32, size int) ([]byte, error) {
	var out []byte
	seen := 0
	for s := start; s != secEndOfChain && s != secFree; {
		off := int(s) * miniSectorSize
		if off+miniSectorSize > len(d.miniStream) {
			return nil, containerErrorf("minisector %d out of bounds", s)
		}
		out = append(out, d.miniStream[off:off+miniSectorSize]...)
		seen++
		if seen > len(d.miniStream)/miniSectorSize+1 {
			return nil, containerErrorf("minisector chain loop at %d", s)
		}
		if int(s) >= len(d.miniFAT) {
			return nil, containerErrorf("minisector %d not in allocation table", s)
		}
		s = d.miniFAT[s]
	}
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// stream extracts the named stream, looking in the ministream when the
// stream is below the mini cutoff.
func (d *compDoc) stream(names ...string) ([]byte, error) {
	for _, e := range d.dir {
		if e.objectType != dirStream {
			continue
		}
		for _, name := range names {
			if e.name != name {
				continue
			}
			if e.size < miniCutoff {
				return d.readMiniChain(e.startSector, int(e.size))
			}
			return d.readChain(e.startSector, int(e.size))
		}
	}
	return nil, containerErrorf("no stream named %v", names)
}
