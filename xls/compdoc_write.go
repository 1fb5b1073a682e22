package xls

import (
	"encoding/binary"
	"io"
	"unicode/utf16"
)

// writeCompDoc wraps a single "Workbook" stream in a compound-document
// container. Streams below the mini cutoff are placed in a ministream the
// way Excel writes small files; larger streams go straight into 512-byte
// sectors, with DIFAT sectors chained in when the allocation table outgrows
// the header.
func writeCompDoc(w io.Writer, stream []byte) error {
	if len(stream) < miniCutoff {
		return writeMiniCompDoc(w, stream)
	}
	streamSectors := (len(stream) + sectorSize - 1) / sectorSize

	fatSectors, difatSectors := 1, 0
	for {
		total := difatSectors + fatSectors + 1 + streamSectors
		needFat := (total + 127) / 128
		needDifat := 0
		if needFat > 109 {
			needDifat = (needFat - 109 + 126) / 127
		}
		if needFat == fatSectors && needDifat == difatSectors {
			break
		}
		fatSectors, difatSectors = needFat, needDifat
	}
	dirSector := uint32(difatSectors + fatSectors)
	streamStart := dirSector + 1
	total := int(streamStart) + streamSectors

	fat := make([]uint32, fatSectors*128)
	for i := range fat {
		fat[i] = secFree
	}
	for i := 0; i < difatSectors; i++ {
		fat[i] = secDIFAT
	}
	for i := 0; i < fatSectors; i++ {
		fat[difatSectors+i] = secFAT
	}
	fat[dirSector] = secEndOfChain
	for i := 0; i < streamSectors-1; i++ {
		fat[int(streamStart)+i] = streamStart + uint32(i) + 1
	}
	fat[total-1] = secEndOfChain

	header := newCompDocHeader()
	binary.LittleEndian.PutUint32(header[44:], uint32(fatSectors))
	binary.LittleEndian.PutUint32(header[48:], dirSector)
	binary.LittleEndian.PutUint32(header[60:], secEndOfChain) // no miniFAT
	binary.LittleEndian.PutUint32(header[64:], 0)
	if difatSectors > 0 {
		binary.LittleEndian.PutUint32(header[68:], 0)
	} else {
		binary.LittleEndian.PutUint32(header[68:], secEndOfChain)
	}
	binary.LittleEndian.PutUint32(header[72:], uint32(difatSectors))
	for i := 0; i < fatSectors && i < 109; i++ {
		binary.LittleEndian.PutUint32(header[76+i*4:], uint32(difatSectors+i))
	}
	if _, err := w.Write(header); err != nil {
		return err
	}

	// DIFAT sectors list the FAT sectors beyond the 109 header slots, each
	// ending with the next DIFAT sector number.
	next := 109
	for i := 0; i < difatSectors; i++ {
		sec := freeSector()
		for j := 0; j < 127 && next < fatSectors; j++ {
			binary.LittleEndian.PutUint32(sec[j*4:], uint32(difatSectors+next))
			next++
		}
		if i < difatSectors-1 {
			binary.LittleEndian.PutUint32(sec[sectorSize-4:], uint32(i+1))
		} else {
			binary.LittleEndian.PutUint32(sec[sectorSize-4:], secEndOfChain)
		}
		if _, err := w.Write(sec); err != nil {
			return err
		}
	}

	if err := writeFAT(w, fat); err != nil {
		return err
	}
	if err := writeDirectory(w, secEndOfChain, 0, streamStart, uint32(len(stream))); err != nil {
		return err
	}
	return writePadded(w, stream, streamSectors*sectorSize)
}

// writeMiniCompDoc lays out a small stream through the ministream: one FAT
// sector, one directory sector, one miniFAT sector, then the ministream.
func writeMiniCompDoc(w io.Writer, stream []byte) error {
	miniSectors := (len(stream) + miniSectorSize - 1) / miniSectorSize
	miniBytes := miniSectors * miniSectorSize
	msSectors := (miniBytes + sectorSize - 1) / sectorSize

	const (
		fatSector     = 0
		dirSector     = 1
		miniFATSector = 2
		msStart       = 3
	)

	fat := make([]uint32, 128)
	for i := range fat {
		fat[i] = secFree
	}
	fat[fatSector] = secFAT
	fat[dirSector] = secEndOfChain
	fat[miniFATSector] = secEndOfChain
	for i := 0; i < msSectors-1; i++ {
		fat[msStart+i] = uint32(msStart + i + 1)
	}
	fat[msStart+msSectors-1] = secEndOfChain

	header := newCompDocHeader()
	binary.LittleEndian.PutUint32(header[44:], 1)
	binary.LittleEndian.PutUint32(header[48:], dirSector)
	binary.LittleEndian.PutUint32(header[60:], miniFATSector)
	binary.LittleEndian.PutUint32(header[64:], 1)
	binary.LittleEndian.PutUint32(header[68:], secEndOfChain)
	binary.LittleEndian.PutUint32(header[72:], 0)
	binary.LittleEndian.PutUint32(header[76:], fatSector)
	if _, err := w.Write(header); err != nil {
		return err
	}
	if err := writeFAT(w, fat); err != nil {
		return err
	}
	if err := writeDirectory(w, msStart, uint32(miniBytes), 0, uint32(len(stream))); err != nil {
		return err
	}

	miniFAT := freeSector()
	for i := range miniFAT {
		miniFAT[i] = 0xFF
	}
	for i := 0; i < miniSectors-1; i++ {
		binary.LittleEndian.PutUint32(miniFAT[i*4:], uint32(i+1))
	}
	binary.LittleEndian.PutUint32(miniFAT[(miniSectors-1)*4:], secEndOfChain)
	if _, err := w.Write(miniFAT); err != nil {
		return err
	}
	return writePadded(w, stream, msSectors*sectorSize)
}

func newCompDocHeader() []byte {
	h := make([]byte, sectorSize)
	copy(h, compoundSignature)
	binary.LittleEndian.PutUint16(h[24:], 0x003E) // minor version
	binary.LittleEndian.PutUint16(h[26:], 0x0003) // major version 3
	binary.LittleEndian.PutUint16(h[28:], 0xFFFE) // little endian
	binary.LittleEndian.PutUint16(h[30:], 9)      // 512-byte sectors
	binary.LittleEndian.PutUint16(h[32:], 6)      // 64-byte minisectors
	binary.LittleEndian.PutUint32(h[56:], miniCutoff)
	// Unused header DIFAT slots must read as free sectors.
	for i := 76; i < sectorSize; i++ {
		h[i] = 0xFF
	}
	return h
}

func freeSector() []byte {
	sec := make([]byte, sectorSize)
	for i := range sec {
		sec[i] = 0xFF
	}
	return sec
}

func writeFAT(w io.Writer, fat []uint32) error {
	buf := make([]byte, len(fat)*4)
	for i, v := range fat {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	_, err := w.Write(buf)
	return err
}

// writeDirectory emits one directory sector holding the root entry and the
// workbook stream entry. rootStart/rootSize describe the ministream; they are
// end-of-chain/zero when the stream lives in normal sectors.
func writeDirectory(w io.Writer, rootStart, rootSize, streamStart, streamSize uint32) error {
	sec := make([]byte, sectorSize)
	encodeDirEntry(sec[0:], "Root Entry", dirRoot, rootStart, rootSize, 1)
	encodeDirEntry(sec[128:], "Workbook", dirStream, streamStart, streamSize, secFree)
	// Entries 3 and 4 stay unused.
	binary.LittleEndian.PutUint32(sec[256+68:], secFree)
	binary.LittleEndian.PutUint32(sec[256+72:], secFree)
	binary.LittleEndian.PutUint32(sec[256+76:], secFree)
	binary.LittleEndian.PutUint32(sec[384+68:], secFree)
	binary.LittleEndian.PutUint32(sec[384+72:], secFree)
	binary.LittleEndian.PutUint32(sec[384+76:], secFree)
	_, err := w.Write(sec)
	return err
}

func encodeDirEntry(b []byte, name string, objectType byte, start, size, child uint32) {
	units := utf16.Encode([]rune(name))
	for i, u := range units {
		binary.LittleEndian.PutUint16(b[i*2:], u)
	}
	binary.LittleEndian.PutUint16(b[64:], uint16((len(units)+1)*2))
	b[66] = objectType
	b[67] = 1 // black
	binary.LittleEndian.PutUint32(b[68:], secFree) // left sibling
	binary.LittleEndian.PutUint32(b[72:], secFree) // right sibling
	binary.LittleEndian.PutUint32(b[76:], child)
	binary.LittleEndian.PutUint32(b[116:], start)
	binary.LittleEndian.PutUint32(b[120:], size)
}

func writePadded(w io.Writer, data []byte, size int) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	if pad := size - len(data); pad > 0 {
		_, err := w.Write(make([]byte, pad))
		return err
	}
	return nil
}
