package passkey

import "testing"

func TestRoundTrip(t *testing.T) {
	inputs := []string{"", "123456", "pässkey ✓", "with\nnewline", "a/b+c=="}
	for _, in := range inputs {
		out, err := Decrypt(Encrypt(in))
		if err != nil {
			t.Fatalf("decrypt %q: %v", in, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: %q != %q", out, in)
		}
	}
}

func TestEncryptIsStandardBase64(t *testing.T) {
	if got := Encrypt("111111"); got != "MTExMTEx" {
		t.Fatalf("unexpected encoding %q", got)
	}
}

func TestDecryptInvalid(t *testing.T) {
	if _, err := Decrypt("not base64!"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestVerify(t *testing.T) {
	if !Verify(Encrypt("123456"), "123456") {
		t.Fatal("expected matching passkey to verify")
	}
	if Verify(Encrypt("654321"), "123456") {
		t.Fatal("expected mismatched passkey to fail")
	}
	if Verify(Encrypt(""), "") {
		t.Fatal("expected empty configured passkey to never verify")
	}
	if Verify("%%%", "123456") {
		t.Fatal("expected invalid encoding to fail")
	}
}
