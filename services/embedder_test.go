package services

import (
	"context"
	"math"
	"testing"
)

func TestHashingEmbedderDeterministic(t *testing.T) {
	e := NewHashingEmbedder(0)
	if e.Dim() != 384 {
		t.Fatalf("default dim = %d, want 384", e.Dim())
	}
	a, err := e.Embed(context.Background(), []string{"semantic index", "semantic index"})
	if err != nil {
		t.Fatalf("embed error: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatalf("same text produced different vectors at %d", i)
		}
	}
}

func TestHashingEmbedderNormalized(t *testing.T) {
	e := NewHashingEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"document intelligence", "x"})
	if err != nil {
		t.Fatalf("embed error: %v", err)
	}
	for i, vec := range vecs {
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(sum)-1) > 1e-4 {
			t.Fatalf("vector %d has norm %f, want 1", i, math.Sqrt(sum))
		}
	}
}

func TestHashingEmbedderPreservesOrder(t *testing.T) {
	e := NewHashingEmbedder(32)
	texts := []string{"alpha", "beta", "gamma"}
	batch, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("embed error: %v", err)
	}
	for i, text := range texts {
		single, err := e.Embed(context.Background(), []string{text})
		if err != nil {
			t.Fatalf("embed error: %v", err)
		}
		for j := range single[0] {
			if batch[i][j] != single[0][j] {
				t.Fatalf("batch row %d does not match single embed of %q", i, text)
			}
		}
	}
}
