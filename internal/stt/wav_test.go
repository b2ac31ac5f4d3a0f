package stt

import (
	"bytes"
	"testing"

	"github.com/go-audio/wav"
)

func TestEncodeWAVProducesDecodableMono16k(t *testing.T) {
	pcm := make([]float32, sampleRate/10) // 100ms
	for i := range pcm {
		pcm[i] = 0.25
	}

	data, err := encodeWAV(pcm)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatalf("encoder produced an invalid wav file")
	}
	if dec.SampleRate != sampleRate {
		t.Fatalf("expected %d Hz, got %d", sampleRate, dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Fatalf("expected mono, got %d channels", dec.NumChans)
	}
	if dec.BitDepth != 16 {
		t.Fatalf("expected 16-bit samples, got %d", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(buf.Data) != len(pcm) {
		t.Fatalf("expected %d samples, got %d", len(pcm), len(buf.Data))
	}
}

func TestEncodeWAVClampsOutOfRangeSamples(t *testing.T) {
	data, err := encodeWAV([]float32{2.0, -2.0, 0})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if buf.Data[0] != 32767 || buf.Data[1] != -32767 || buf.Data[2] != 0 {
		t.Fatalf("unexpected clamped samples: %v", buf.Data)
	}
}

func TestBaseLanguage(t *testing.T) {
	cases := map[string]string{
		"en-US": "en",
		"en":    "en",
		"de-DE": "de",
		"auto":  "auto",
	}
	for in, want := range cases {
		if got := baseLanguage(in); got != want {
			t.Fatalf("baseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
