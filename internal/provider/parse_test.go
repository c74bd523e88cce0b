package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTopupReply(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		out := ParseTopupReply("T#210286229 R#113 Three 1.000 T1.089660522887 akan diproses. Saldo 279.655 - 1.321 = 278.334 @19:08")
		assert.Equal(t, StatusProcess, out.Status)
		assert.Equal(t, "210286229", out.ProviderTrxID)
		assert.Equal(t, "113", out.RefID)
	})

	t.Run("accepted without provider id", func(t *testing.T) {
		out := ParseTopupReply("R#88 Produk X akan diproses.")
		assert.Equal(t, StatusProcess, out.Status)
		assert.Empty(t, out.ProviderTrxID)
	})

	t.Run("rejected with reason", func(t *testing.T) {
		out := ParseTopupReply("R#0 T1.089660522887 GAGAL. Pin Salah.")
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, "Pin Salah", out.Message)
	})

	t.Run("rejected reason runs to end of string", func(t *testing.T) {
		out := ParseTopupReply("R#0 GAGAL. Saldo tidak cukup")
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, "Saldo tidak cukup", out.Message)
	})

	t.Run("rejected without reason falls back to generic", func(t *testing.T) {
		out := ParseTopupReply("Transaksi GAGAL")
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, "Transaksi gagal", out.Message)
	})

	t.Run("unrecognized text fails closed", func(t *testing.T) {
		out := ParseTopupReply("maintenance mode, coba lagi nanti")
		assert.Equal(t, StatusFailed, out.Status)
		assert.Contains(t, out.Message, "maintenance mode")
	})
}

func TestParseStatusReply(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		status string
		serial string
	}{
		{
			name:   "success with serial number",
			text:   "R#113 Three 1.000 T1.089660522887 sudah pernah jam 19:08, status Sukses. SN: R230512.1908.2000FE",
			status: StatusSuccess,
			serial: "R230512.1908.2000FE",
		},
		{
			name:   "failed",
			text:   "R#999 Three 5.000 T5.08980204060 sudah pernah jam 18:46, status Gagal. Mohon diperiksa",
			status: StatusFailed,
		},
		{
			name:   "pending",
			text:   "Mhn tunggu trx sblmnya selesai: T#762221212 R#999 T5.08980204060 @18:46, status Menunggu Jawaban",
			status: StatusPending,
		},
		{
			name:   "not found",
			text:   "TIDAK ADA transaksi Tujuan 08980204060 pada tgl 22/04/2025. Tidak ada data",
			status: StatusNotFound,
		},
		{
			// "GAGAL" also appears here, but the not-found rule is tested first.
			name:   "not found wins over failure marker",
			text:   "Tidak ada data. Transaksi GAGAL dicari",
			status: StatusNotFound,
		},
		{
			name:   "unknown preserves raw text",
			text:   "sistem sedang sibuk",
			status: StatusUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := ParseStatusReply(tc.text)
			assert.Equal(t, tc.status, out.Status)
			if tc.serial != "" {
				assert.Equal(t, tc.serial, out.SerialNumber)
			}
			if tc.status == StatusUnknown {
				assert.Contains(t, out.Message, tc.text)
			}
		})
	}
}

func TestParseCallbackMessage(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		out := ParseCallbackMessage("T#41168891 R#1234 Telkomsel 5.000 S5.082280004280 SUKSES. SN/Ref: R210630.2203.210045. Saldo 100.000")
		assert.Equal(t, StatusSuccess, out.Status)
		assert.Equal(t, "1234", out.RefID)
		assert.Equal(t, "41168891", out.ProviderTrxID)
		assert.Equal(t, "R210630.2203.210045", out.SerialNumber)
	})

	t.Run("failed", func(t *testing.T) {
		out := ParseCallbackMessage("T#41169572 R#1235 Telkomsel 5.000 S5.082280004280 GAGAL. Nomor tujuan salah. Saldo 95.000")
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, "1235", out.RefID)
		assert.Equal(t, "41169572", out.ProviderTrxID)
	})

	t.Run("unknown keeps both ids and raw text", func(t *testing.T) {
		msg := "T#5 R#6 format baru yang aneh"
		out := ParseCallbackMessage(msg)
		assert.Equal(t, StatusUnknown, out.Status)
		assert.Equal(t, "6", out.RefID)
		assert.Equal(t, "5", out.ProviderTrxID)
		assert.Equal(t, msg, out.Message)
	})
}
