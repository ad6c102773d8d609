package utils

import "testing"

func TestWebhookSignatureRoundTrip(t *testing.T) {
	body := []byte(`{"department_id":1}`)
	sig := ComputeWebhookSignature("s3cret", 1700000000, body)
	if !VerifyWebhookSignature("s3cret", 1700000000, body, sig) {
		t.Fatal("expected signature to verify")
	}
	if VerifyWebhookSignature("other", 1700000000, body, sig) {
		t.Fatal("wrong secret must not verify")
	}
	if VerifyWebhookSignature("s3cret", 1700000001, body, sig) {
		t.Fatal("wrong timestamp must not verify")
	}
	if VerifyWebhookSignature("s3cret", 1700000000, body, "zz") {
		t.Fatal("non-hex signature must not verify")
	}
}
