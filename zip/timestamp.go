package zip

import "time"

// dosTimeToTime decodes a 32-bit MS-DOS date-time into a calendar moment.
//
// Fields, LSB to MSB: seconds/2 (5 bits), minutes (6 bits), hours (5 bits),
// day (5 bits), month (4 bits), year-1980 (7 bits). No timezone adjustment
// is applied; the result is constructed in time.UTC purely from the
// encoded fields.
func dosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9)+1980,
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),

		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f)*2,
		0,
		time.UTC,
	)
}

// timeToDosTime is the inverse of dosTimeToTime. Nothing in this package
// calls it; the test archive builder in zipbuild_test.go (package zip_test)
// carries its own copy, dosTime.
func timeToDosTime(t time.Time) (dosDate, dosTime uint16) {
	dosDate = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	dosTime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}
