package format

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cyp0633/librecur/recurrence"
)

const (
	// RecordLength is the size of an encoded rule in bytes.
	RecordLength = 41
	// Version tags the record layout. Decoders reject any other value.
	Version = 100
)

// ErrFormat is returned when encoded data cannot be turned back into a rule.
var ErrFormat = errors.New("malformed recurrence data")

// Wire values of the period field.
const (
	wireNone int32 = iota - 1
	wireDaily
	wireWeekly
	wireMonthly
	wireYearly
)

// Wire values of the end type field.
const (
	wireEndNever int32 = iota
	wireEndByDate
	wireEndByCount
)

func periodToWire(p recurrence.Period) int32 {
	switch p {
	case recurrence.Daily:
		return wireDaily
	case recurrence.Weekly:
		return wireWeekly
	case recurrence.Monthly:
		return wireMonthly
	case recurrence.Yearly:
		return wireYearly
	default:
		return wireNone
	}
}

func periodFromWire(v int32) (recurrence.Period, error) {
	switch v {
	case wireNone:
		return recurrence.None, nil
	case wireDaily:
		return recurrence.Daily, nil
	case wireWeekly:
		return recurrence.Weekly, nil
	case wireMonthly:
		return recurrence.Monthly, nil
	case wireYearly:
		return recurrence.Yearly, nil
	}
	return recurrence.None, fmt.Errorf("%w: unknown period %d", ErrFormat, v)
}

func endTypeToWire(e recurrence.EndType) int32 {
	switch e {
	case recurrence.EndByDate:
		return wireEndByDate
	case recurrence.EndByCount:
		return wireEndByCount
	default:
		return wireEndNever
	}
}

func endTypeFromWire(v int32) (recurrence.EndType, error) {
	switch v {
	case wireEndNever:
		return recurrence.EndNever, nil
	case wireEndByDate:
		return recurrence.EndByDate, nil
	case wireEndByCount:
		return recurrence.EndByCount, nil
	}
	return recurrence.EndNever, fmt.Errorf("%w: unknown end type %d", ErrFormat, v)
}

// Encode returns the fixed-length binary record of r. Moments are stored as
// Unix milliseconds, so sub-millisecond precision is lost and the location
// is not kept: the record must be decoded in the location r was built in.
func Encode(r recurrence.Rule) []byte {
	return AppendEncode(make([]byte, 0, RecordLength), r)
}

// AppendEncode appends the binary record of r to dst, for packing several
// rules in one buffer.
func AppendEncode(dst []byte, r recurrence.Rule) []byte {
	f := r.Fields()

	dst = binary.BigEndian.AppendUint32(dst, Version)
	if f.Default {
		dst = append(dst, 1)
	} else {
		dst = append(dst, 0)
	}
	dst = binary.BigEndian.AppendUint64(dst, uint64(f.Start.UnixMilli()))
	dst = binary.BigEndian.AppendUint32(dst, uint32(periodToWire(f.Period)))
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(f.Frequency)))
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(f.DaySetting)))
	dst = binary.BigEndian.AppendUint32(dst, uint32(endTypeToWire(f.EndType)))
	dst = binary.BigEndian.AppendUint32(dst, uint32(int32(f.EndCount)))

	var end int64
	if f.EndType == recurrence.EndByDate {
		end = f.EndDate.UnixMilli()
	}
	return binary.BigEndian.AppendUint64(dst, uint64(end))
}

// Decode reads the record starting at offset in data, expressing moments in
// loc. loc must be the location the rule was encoded from: the weekday mask,
// the last day of month setting and the default flag all depend on the
// calendar day of the start, which shifts in another location.
//
// The default flag stored in the record is compared with the one derived from
// the decoded fields, and a mismatch is reported as ErrFormat since it means
// the start fell on another day. Records describing a rule that violates its
// invariants are rejected with ErrFormat too.
func Decode(data []byte, offset int, loc *time.Location) (recurrence.Rule, error) {
	if loc == nil {
		return recurrence.Rule{}, fmt.Errorf("%w: no location to decode into", ErrFormat)
	}
	if len(data) < RecordLength {
		return recurrence.Rule{}, fmt.Errorf("%w: record needs %d bytes, got %d", ErrFormat, RecordLength, len(data))
	}
	if offset < 0 || offset > len(data)-RecordLength {
		return recurrence.Rule{}, fmt.Errorf("%w: offset %d out of bounds for %d bytes", ErrFormat, offset, len(data))
	}
	b := data[offset : offset+RecordLength]

	if v := int32(binary.BigEndian.Uint32(b[0:4])); v != Version {
		return recurrence.Rule{}, fmt.Errorf("%w: unknown version %d", ErrFormat, v)
	}
	storedDefault := b[4] != 0
	start := int64(binary.BigEndian.Uint64(b[5:13]))
	period, err := periodFromWire(int32(binary.BigEndian.Uint32(b[13:17])))
	if err != nil {
		return recurrence.Rule{}, err
	}
	frequency := int32(binary.BigEndian.Uint32(b[17:21]))
	daySetting := int32(binary.BigEndian.Uint32(b[21:25]))
	endType, err := endTypeFromWire(int32(binary.BigEndian.Uint32(b[25:29])))
	if err != nil {
		return recurrence.Rule{}, err
	}
	endCount := int32(binary.BigEndian.Uint32(b[29:33]))
	end := int64(binary.BigEndian.Uint64(b[33:41]))

	f := recurrence.Fields{
		Start:      time.UnixMilli(start).In(loc),
		Period:     period,
		Frequency:  int(frequency),
		DaySetting: int(daySetting),
		EndType:    endType,
		EndCount:   int(endCount),
	}
	if end != 0 {
		f.EndDate = time.UnixMilli(end).In(loc)
	}

	r, err := recurrence.FromFields(f)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if r.IsDefault() != storedDefault {
		return recurrence.Rule{}, fmt.Errorf("%w: default flag mismatch, start %s in %s is not the encoded day",
			ErrFormat, r.Start().Format("2006-01-02 Mon"), loc)
	}
	return r, nil
}

// EncodeHex returns the binary record of r as lowercase hex.
func EncodeHex(r recurrence.Rule) string {
	return hex.EncodeToString(Encode(r))
}

// DecodeHex decodes a record produced by EncodeHex.
func DecodeHex(s string, loc *time.Location) (recurrence.Rule, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return recurrence.Rule{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	return Decode(data, 0, loc)
}
