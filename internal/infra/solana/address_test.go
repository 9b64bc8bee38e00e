package solana

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress(KnownPercolatorProgram)
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}
	if a.String() != KnownPercolatorProgram {
		t.Errorf("round trip: got %s", a.String())
	}

	zero, err := ParseAddress("11111111111111111111111111111111")
	if err != nil || !zero.IsZero() {
		t.Errorf("system program should be the zero key: %v %v", zero, err)
	}

	for _, bad := range []string{"", "0OIl", "abc", KnownPercolatorProgram + "1111"} {
		if _, err := ParseAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("ParseAddress(%q) = %v, want ErrInvalidAddress", bad, err)
		}
	}
}

func TestAddress_JSON(t *testing.T) {
	in := struct {
		Program Address `json:"program"`
	}{MustParseAddress(KnownPercolatorProgram)}

	b, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"program":"`+KnownPercolatorProgram+`"}` {
		t.Errorf("got %s", b)
	}

	var out struct {
		Program Address `json:"program"`
	}
	if err := json.Unmarshal(b, &out); err != nil || out.Program != in.Program {
		t.Errorf("unmarshal: %v %v", out.Program, err)
	}
	if err := json.Unmarshal([]byte(`{"program":"xyz"}`), &out); err == nil {
		t.Error("expected error for short key")
	}
}

func TestMustParseAddress_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustParseAddress("bad")
}
