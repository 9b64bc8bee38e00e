package solana

import "testing"

func TestExplorerURLs(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{AccountURL("Abc", ""), "https://solscan.io/account/Abc"},
		{AccountURL("Abc", "devnet"), "https://solscan.io/account/Abc?cluster=devnet"},
		{TxURL("5sig", ""), "https://solscan.io/tx/5sig"},
		{TxURL("5sig", "devnet"), "https://solscan.io/tx/5sig?cluster=devnet"},
		{AccountURL("Abc", "mainnet"), "https://solscan.io/account/Abc"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %s, want %s", tt.got, tt.want)
		}
	}
}

func TestTruncateAddress(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{KnownPercolatorProgram, "GM8z…rY24"},
		{"12345678", "12345678"},
		{"123456789", "1234…6789"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := TruncateAddress(tt.in); got != tt.want {
			t.Errorf("TruncateAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
