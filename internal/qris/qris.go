// Package qris generates dynamic QRIS payloads from a configured static
// merchant code. A QRIS payload is an EMVCo TLV string: two-digit tag,
// two-digit length, value, terminated by tag 63 holding a CRC-16/CCITT-FALSE
// checksum over everything up to and including the literal "6304".
package qris

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

const (
	tagPayloadFormat  = "00"
	tagPointOfInit    = "01"
	tagAmount         = "54"
	tagCRC            = "63"
	pointOfInitStatic = "11"
	pointOfInitDynam  = "12"
)

var (
	ErrInvalidPayload = errors.New("invalid QRIS payload")
	ErrBadChecksum    = errors.New("QRIS checksum mismatch")
)

type field struct {
	tag   string
	value string
}

// parse splits a payload into ordered TLV fields, excluding the CRC tag.
func parse(payload string) ([]field, error) {
	var fields []field
	for i := 0; i < len(payload); {
		if len(payload)-i < 4 {
			return nil, fmt.Errorf("%w: truncated at offset %d", ErrInvalidPayload, i)
		}
		tag := payload[i : i+2]
		length, err := strconv.Atoi(payload[i+2 : i+4])
		if err != nil || length < 0 {
			return nil, fmt.Errorf("%w: bad length for tag %s", ErrInvalidPayload, tag)
		}
		if i+4+length > len(payload) {
			return nil, fmt.Errorf("%w: tag %s overruns payload", ErrInvalidPayload, tag)
		}
		value := payload[i+4 : i+4+length]
		if tag != tagCRC {
			fields = append(fields, field{tag: tag, value: value})
		}
		i += 4 + length
	}
	if len(fields) == 0 || fields[0].tag != tagPayloadFormat {
		return nil, fmt.Errorf("%w: missing payload format indicator", ErrInvalidPayload)
	}
	return fields, nil
}

// Validate checks TLV structure and the CRC of a base payload.
func Validate(payload string) error {
	if _, err := parse(payload); err != nil {
		return err
	}
	idx := strings.LastIndex(payload, tagCRC+"04")
	if idx < 0 || len(payload) != idx+8 {
		return fmt.Errorf("%w: missing CRC field", ErrInvalidPayload)
	}
	expected := checksum(payload[:idx+4])
	if !strings.EqualFold(payload[idx+4:], expected) {
		return ErrBadChecksum
	}
	return nil
}

// Generate rewrites a static base payload into a dynamic one carrying the
// given amount (whole rupiah, no decimals): the point-of-initiation tag is
// switched to dynamic, the amount tag is inserted in tag order, and the CRC
// is recomputed.
func Generate(basePayload string, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("amount must be positive, got %d", amount)
	}
	fields, err := parse(basePayload)
	if err != nil {
		return "", err
	}

	amountValue := strconv.FormatInt(amount, 10)
	replaced := false
	out := make([]field, 0, len(fields)+1)
	for _, f := range fields {
		switch f.tag {
		case tagPointOfInit:
			out = append(out, field{tag: tagPointOfInit, value: pointOfInitDynam})
		case tagAmount:
			out = append(out, field{tag: tagAmount, value: amountValue})
			replaced = true
		default:
			out = append(out, f)
		}
	}
	if !replaced {
		out = append(out, field{tag: tagAmount, value: amountValue})
		sort.SliceStable(out, func(i, j int) bool { return out[i].tag < out[j].tag })
	}

	var b strings.Builder
	for _, f := range out {
		if len(f.value) > 99 {
			return "", fmt.Errorf("%w: tag %s value too long", ErrInvalidPayload, f.tag)
		}
		fmt.Fprintf(&b, "%s%02d%s", f.tag, len(f.value), f.value)
	}
	b.WriteString(tagCRC + "04")
	payload := b.String()
	return payload + checksum(payload), nil
}

// checksum computes CRC-16/CCITT-FALSE (poly 0x1021, init 0xFFFF) as four
// uppercase hex digits, per the EMVCo QR specification.
func checksum(data string) string {
	crc := uint16(0xFFFF)
	for i := 0; i < len(data); i++ {
		crc ^= uint16(data[i]) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return fmt.Sprintf("%04X", crc)
}

// RandomAmount picks a small binding offset not present in used, which holds
// the offsets of the user's other pending deposits. It scans 100-wide ranges
// starting at 1 and moves to the next range only when the current one is
// exhausted, falling back to a large random offset if all ranges are full.
func RandomAmount(used map[int]struct{}, rng *rand.Rand) int {
	const ranges = 10
	for start := 1; start <= ranges*100; start += 100 {
		var free []int
		for n := start; n <= start+99; n++ {
			if _, taken := used[n]; !taken {
				free = append(free, n)
			}
		}
		if len(free) > 0 {
			return free[rng.Intn(len(free))]
		}
	}
	return 1001 + rng.Intn(8999)
}
