package gateway

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"unicode/utf8"
)

func TestSignature(t *testing.T) {
	sum := sha512.Sum512([]byte("ORDER-1" + "200" + "20000.00" + "secret"))
	want := hex.EncodeToString(sum[:])

	if got := Signature("ORDER-1", "200", "20000.00", "secret"); got != want {
		t.Errorf("Signature() = %s, want %s", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	valid := Signature("ORDER-1", "200", "20000.00", "secret")

	tests := []struct {
		name      string
		amount    string
		serverKey string
		signature string
		want      bool
	}{
		{name: "valid", amount: "20000.00", serverKey: "secret", signature: valid, want: true},
		{name: "tamperedAmount", amount: "1.00", serverKey: "secret", signature: valid, want: false},
		{name: "wrongKey", amount: "20000.00", serverKey: "other", signature: valid, want: false},
		{name: "emptySignature", amount: "20000.00", serverKey: "secret", signature: "", want: false},
		{name: "emptyKey", amount: "20000.00", serverKey: "", signature: valid, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature("ORDER-1", "200", tt.amount, tt.serverKey, tt.signature); got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineItemsTotal(t *testing.T) {
	items := []LineItem{
		{ID: "a", Price: 10000, Quantity: 2},
		{ID: "b", Price: 5000, Quantity: 1},
		{ID: "DISCOUNT", Price: -2500, Quantity: 1},
	}

	if got := LineItemsTotal(items); got != 22500 {
		t.Errorf("LineItemsTotal() = %d, want 22500", got)
	}
}

func TestNewMidtrans(t *testing.T) {
	if _, err := NewMidtrans(MidtransConfig{}, nil); err == nil {
		t.Error("NewMidtrans() without server key should fail")
	}

	m, err := NewMidtrans(MidtransConfig{ServerKey: "SB-Mid-server-test", Environment: "sandbox"}, nil)
	if err != nil {
		t.Fatalf("NewMidtrans() error = %v", err)
	}
	if m.logger == nil {
		t.Error("NewMidtrans() should set noop logger when nil")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "Soup", n: 50, want: "Soup"},
		{name: "exact", in: "abcde", n: 5, want: "abcde"},
		{name: "long", in: "abcdefgh", n: 5, want: "abcde"},
		{name: "multiByteFits", in: "Es Teh Manis ☕", n: 14, want: "Es Teh Manis ☕"},
		{name: "multiByteCut", in: "Crème brûlée", n: 4, want: "Crèm"},
		{name: "cjk", in: "炒饭特别版", n: 2, want: "炒饭"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("truncate() = %q, want %q", got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate() = %q is not valid UTF-8", got)
			}
		})
	}
}
