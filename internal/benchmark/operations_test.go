package benchmark

import (
	"context"
	"testing"
)

func TestGetOperation(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		minSize  int
	}{
		{OperationPrime, "Prime", 2},
		{OperationKeygen, "Keygen", 3},
		{OperationRoundTrip, "RoundTrip", 3},
	}

	for _, test := range tests {
		op, err := getOperation(test.name, Config{}.withDefaults(), nil)
		if err != nil {
			t.Fatalf("getOperation(%q) failed: %v", test.name, err)
		}
		if op.Name() != test.expected {
			t.Errorf("Expected name %s, got %s", test.expected, op.Name())
		}
		if op.MinKeySize() != test.minSize {
			t.Errorf("Expected min size %d for %s, got %d", test.minSize, test.name, op.MinKeySize())
		}
	}

	if _, err := getOperation("ecdsa", Config{}, nil); err == nil {
		t.Error("Expected error for unknown operation")
	}
}

func TestIsValidKeySize(t *testing.T) {
	keygen := &KeygenOperation{}

	tests := []struct {
		size     int
		expected bool
	}{
		{1, false},
		{2, false},
		{3, true},
		{64, true},
		{1024, true},
	}

	for _, test := range tests {
		result := isValidKeySize(keygen, test.size)
		if result != test.expected {
			t.Errorf("For size %d, expected %v, got %v", test.size, test.expected, result)
		}
	}
}

func TestOperationsRun(t *testing.T) {
	config := Config{Workers: 2}.withDefaults()

	for _, name := range []string{OperationPrime, OperationKeygen, OperationRoundTrip} {
		op, err := getOperation(name, config, nil)
		if err != nil {
			t.Fatalf("getOperation(%q) failed: %v", name, err)
		}

		sample, err := op.Run(context.Background(), 32)
		if err != nil {
			t.Fatalf("%s failed: %v", name, err)
		}
		if sample.Bits != 32 {
			t.Errorf("%s: expected 32 bits, got %d", name, sample.Bits)
		}

		hasKeys := sample.Public != nil && sample.Private != nil
		if wantKeys := name != OperationPrime; hasKeys != wantKeys {
			t.Errorf("%s: expected keys %v, got %v", name, wantKeys, hasKeys)
		}
	}
}

func TestPrimeObserverWired(t *testing.T) {
	var observed []int
	op, err := getOperation(OperationPrime, Config{}.withDefaults(), func(bits, attempts int) {
		observed = append(observed, bits)
		if attempts < 1 {
			t.Errorf("Expected at least one attempt, got %d", attempts)
		}
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := op.Run(context.Background(), 16); err != nil {
		t.Fatalf("Prime failed: %v", err)
	}
	if len(observed) != 1 || observed[0] != 16 {
		t.Errorf("Expected one 16-bit observation, got %v", observed)
	}
}
