package provider

import (
	"regexp"
	"strings"
)

// Outcome is the normalized result of parsing a provider reply. The provider
// has no structured API; every signal is embedded in operator-readable
// Indonesian text, so parsing is an ordered list of substring rules.
type Outcome struct {
	Status        string
	RefID         string
	ProviderTrxID string
	SerialNumber  string
	Message       string
}

// Statuses reported by the provider text grammar.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusPending  = "pending"
	StatusProcess  = "process"
	StatusNotFound = "not_found"
	StatusUnknown  = "unknown"
)

var (
	refIDRe      = regexp.MustCompile(`R#(\d+)`)
	trxIDRe      = regexp.MustCompile(`T#(\d+)`)
	failReasonRe = regexp.MustCompile(`(?i)GAGAL\.\s*(.+?)(?:\.|$)`)
	// "SN: R230512.1908.2000FE" and the callback variant "SN/Ref: ...".
	serialRe = regexp.MustCompile(`(?i)SN[/:]?(?:Ref)?[:.]?\s*([A-Z0-9.]+)`)
)

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ParseTopupReply classifies the reply to a transaction creation request.
//
// Accepted:  "T#210286229 R#113 Three 1.000 T1.0896... akan diproses. Saldo ..."
// Rejected:  "R#0 T1.089660522887 GAGAL. Pin Salah"
//
// Anything that matches neither marker is treated as a failure with the raw
// text preserved, so an unrecognized format can never pass as accepted.
func ParseTopupReply(text string) Outcome {
	if containsFold(text, "GAGAL") {
		reason := "Transaksi gagal"
		if m := failReasonRe.FindStringSubmatch(text); m != nil {
			reason = strings.TrimSpace(m[1])
		}
		return Outcome{Status: StatusFailed, Message: reason, RefID: firstMatch(refIDRe, text)}
	}

	if containsFold(text, "akan diproses") {
		return Outcome{
			Status:        StatusProcess,
			RefID:         firstMatch(refIDRe, text),
			ProviderTrxID: firstMatch(trxIDRe, text),
			Message:       "Transaksi sedang diproses",
		}
	}

	return Outcome{Status: StatusFailed, Message: "Format response tidak dikenal: " + text}
}

// statusRule pairs a predicate with the outcome it produces. Rules are
// evaluated strictly in order: some markers also occur inside the context of
// later rules, so specificity must be tested first.
type statusRule struct {
	match   func(string) bool
	outcome func(string) Outcome
}

var statusRules = []statusRule{
	{
		match: func(s string) bool {
			return containsFold(s, "TIDAK ADA") || containsFold(s, "Tidak ada data")
		},
		outcome: func(s string) Outcome {
			return Outcome{Status: StatusNotFound, Message: "Transaksi tidak ditemukan"}
		},
	},
	{
		match: func(s string) bool {
			return containsFold(s, "status Sukses") || containsFold(s, "SUKSES")
		},
		outcome: func(s string) Outcome {
			return Outcome{Status: StatusSuccess, SerialNumber: extractSerial(s), Message: "Transaksi sukses"}
		},
	},
	{
		match: func(s string) bool {
			return containsFold(s, "status Gagal") || containsFold(s, "GAGAL")
		},
		outcome: func(s string) Outcome {
			return Outcome{Status: StatusFailed, Message: "Transaksi gagal"}
		},
	},
	{
		match: func(s string) bool {
			return containsFold(s, "Menunggu") || containsFold(s, "Mhn tunggu")
		},
		outcome: func(s string) Outcome {
			return Outcome{Status: StatusPending, Message: "Transaksi sedang diproses"}
		},
	},
}

// ParseStatusReply classifies the reply to a status check (check=1) request.
// Unrecognized text degrades to StatusUnknown with the raw reply preserved;
// it never errors, so callers can leave the transaction reviewable.
func ParseStatusReply(text string) Outcome {
	for _, rule := range statusRules {
		if rule.match(text) {
			out := rule.outcome(text)
			out.RefID = firstMatch(refIDRe, text)
			out.ProviderTrxID = firstMatch(trxIDRe, text)
			return out
		}
	}
	return Outcome{
		Status:        StatusUnknown,
		RefID:         firstMatch(refIDRe, text),
		ProviderTrxID: firstMatch(trxIDRe, text),
		Message:       "Status tidak dikenal: " + text,
	}
}

// ParseCallbackMessage classifies a provider-initiated push. Callbacks always
// carry both the R# reference and the T# provider transaction id.
//
// Success: "T#41168891 R#1234 Telkomsel 5.000 S5.082280004280 SUKSES. SN/Ref: R210630.2203.210045. Saldo ..."
// Failure: "T#41169572 R#1235 Telkomsel 5.000 S5.082280004280 GAGAL. Nomor tujuan salah. Saldo ..."
func ParseCallbackMessage(message string) Outcome {
	out := Outcome{
		RefID:         firstMatch(refIDRe, message),
		ProviderTrxID: firstMatch(trxIDRe, message),
		Message:       message,
	}

	switch {
	case containsFold(message, "SUKSES"):
		out.Status = StatusSuccess
		out.SerialNumber = extractSerial(message)
	case containsFold(message, "GAGAL"):
		out.Status = StatusFailed
	default:
		out.Status = StatusUnknown
	}
	return out
}

func firstMatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func extractSerial(s string) string {
	m := serialRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	// The token regex is permissive about trailing dots; the serial itself
	// never ends with one.
	return strings.TrimRight(m[1], ".")
}
