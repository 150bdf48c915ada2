package queue

import (
	"testing"
)

func TestJobEncodeDecodeRoundTrip(t *testing.T) {
	job := Job{UploadID: 42, Location: "uploads/9f3b.log", Attempt: 2}

	payload, err := encodeJob(job)
	if err != nil {
		t.Fatalf("encode returned error: %v", err)
	}

	decoded, err := decodeJob(payload)
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	if decoded != job {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, job)
	}
}

func TestDecodeJobRejectsGarbage(t *testing.T) {
	if _, err := decodeJob("not json"); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}
