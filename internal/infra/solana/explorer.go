package solana

import (
	"net/url"
	"unicode/utf8"
)

const solscanBase = "https://solscan.io/"

// AccountURL links an address on Solscan. cluster "devnet" adds the
// cluster query; anything else is mainnet.
func AccountURL(address, cluster string) string {
	return solscanURL("account/", address, cluster)
}

// TxURL links a transaction signature on Solscan.
func TxURL(signature, cluster string) string {
	return solscanURL("tx/", signature, cluster)
}

func solscanURL(kind, id, cluster string) string {
	u := solscanBase + kind + url.PathEscape(id)
	if cluster == "devnet" {
		u += "?cluster=devnet"
	}
	return u
}

// TruncateAddress shortens an address to its first and last four
// characters, e.g. "GM8z…rY24".
func TruncateAddress(address string) string {
	return Truncate(address, 4, 4)
}

// Truncate keeps head and tail runes around an ellipsis. Short strings are
// returned unchanged.
func Truncate(s string, head, tail int) string {
	if utf8.RuneCountInString(s) <= head+tail {
		return s
	}
	r := []rune(s)
	return string(r[:head]) + "…" + string(r[len(r)-tail:])
}
