package state

import "testing"

// FuzzDecode: never panics, ok iff len >= 296, and tier follows length.
func FuzzDecode(f *testing.F) {
	f.Add(make([]byte, 0))
	f.Add(make([]byte, 296))
	f.Add(make([]byte, 328))
	f.Add(sampleV1(906))

	f.Fuzz(func(t *testing.T, data []byte) {
		for _, l := range []Layout{LayoutV1, LayoutV2} {
			rec, ok := DecodeWithLayout(data, l)
			if ok != (len(data) >= l.MinLength()) {
				t.Fatalf("%s: ok = %v for len %d", l.Name, ok, len(data))
			}
			if !ok {
				continue
			}
			_, liq := rec.LifetimeLiquidations()
			_, acc := rec.NumUsedAccounts()
			if liq != (len(data) >= l.LiquidationsThreshold()) {
				t.Fatalf("%s: liquidations present = %v for len %d", l.Name, liq, len(data))
			}
			if acc != (len(data) >= l.AccountsThreshold()) {
				t.Fatalf("%s: accounts present = %v for len %d", l.Name, acc, len(data))
			}
			again, _ := DecodeWithLayout(data, l)
			if again != rec {
				t.Fatalf("%s: non-deterministic decode", l.Name)
			}
		}
	})
}
