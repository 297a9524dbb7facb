// Package zip parses ZIP and ZIP64 archives from a random-access byte
// source and extracts individual members on demand.
//
// Unlike archive/zip, this package never assumes the whole archive is
// resident in memory or on local disk: every read it issues goes through
// a source.RangeReader, so the archive can live behind an HTTP(S) URL and
// only the trailer, central directory and requested members are ever
// fetched.
package zip

import "os"

// Compression methods understood by Extract.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // raw DEFLATE
)

const (
	fileHeaderSignature     = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature   = 0x06054b50
	directory64LocSignature = 0x07064b50
	directory64EndSignature = 0x06064b50

	fileHeaderLen      = 30 // + filename + extra
	directoryHeaderLen = 46 // + filename + extra + comment
	directoryEndLen    = 22 // + comment
	directory64LocLen  = 20
	directory64EndLen  = 56 // + extra

	zip64ExtraID = 0x0001 // Zip64 extended information

	uint16max = (1 << 16) - 1
	uint32max = (1 << 32) - 1

	// Constants for the first byte of CreatorVersion / version-made-by.
	creatorFAT    = 0
	creatorUnix   = 3
	creatorNTFS   = 11
	creatorVFAT   = 14
	creatorMacOSX = 19

	msdosDir      = 0x10
	msdosReadOnly = 0x01
)

// Unix mode bits, as agreed on by tools (the ZIP spec itself doesn't name
// them).
const (
	sIFMT   = 0xf000
	sIFSOCK = 0xc000
	sIFLNK  = 0xa000
	sIFREG  = 0x8000
	sIFBLK  = 0x6000
	sIFDIR  = 0x4000
	sIFCHR  = 0x2000
	sIFIFO  = 0x1000
	sISUID  = 0x800
	sISGID  = 0x400
	sISVTX  = 0x200
)

func unixModeToFileMode(m uint32) os.FileMode {
	mode := os.FileMode(m & 0777)
	switch m & sIFMT {
	case sIFBLK:
		mode |= os.ModeDevice
	case sIFCHR:
		mode |= os.ModeDevice | os.ModeCharDevice
	case sIFDIR:
		mode |= os.ModeDir
	case sIFIFO:
		mode |= os.ModeNamedPipe
	case sIFLNK:
		mode |= os.ModeSymlink
	case sIFREG:
		// nothing to do
	case sIFSOCK:
		mode |= os.ModeSocket
	}
	if m&sISGID != 0 {
		mode |= os.ModeSetgid
	}
	if m&sISUID != 0 {
		mode |= os.ModeSetuid
	}
	if m&sISVTX != 0 {
		mode |= os.ModeSticky
	}
	return mode
}

func msdosModeToFileMode(m uint32) (mode os.FileMode) {
	if m&msdosDir != 0 {
		mode = os.ModeDir | 0777
	} else {
		mode = 0666
	}
	if m&msdosReadOnly != 0 {
		mode &^= 0222
	}
	return mode
}
