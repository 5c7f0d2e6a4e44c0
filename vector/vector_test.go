package vector

import "testing"

func TestGetDefaultsToZero(t *testing.T) {
	v := New()
	if got := v.Get(7); got != 0 {
		t.Errorf("expected 0 for unseen session, got %d", got)
	}
}

func TestAddAndGet(t *testing.T) {
	v := New()
	v.Add(1, 2)
	v.Add(1, 3)
	if got := v.Get(1); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestRemoveUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on underflow")
		}
	}()
	v := New()
	v.Add(1, 1)
	v.Remove(1, 2)
}

func TestCasuallyBefore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     func() StateVector
		expected bool
	}{
		{
			name:     "equal vectors",
			a:        func() StateVector { v := New(); v.Add(1, 2); return v },
			b:        func() StateVector { v := New(); v.Add(1, 2); return v },
			expected: true,
		},
		{
			name:     "a strictly behind",
			a:        func() StateVector { v := New(); v.Add(1, 1); return v },
			b:        func() StateVector { v := New(); v.Add(1, 2); return v },
			expected: true,
		},
		{
			name:     "a ahead on one session",
			a:        func() StateVector { v := New(); v.Add(1, 3); return v },
			b:        func() StateVector { v := New(); v.Add(1, 2); return v },
			expected: false,
		},
		{
			name:     "missing entries count as zero",
			a:        func() StateVector { return New() },
			b:        func() StateVector { v := New(); v.Add(5, 1); return v },
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a().CasuallyBefore(tt.b()); got != tt.expected {
				t.Errorf("CasuallyBefore() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEqualIgnoresTrailingZeros(t *testing.T) {
	a := New()
	a.Set(3, 0)
	b := New()
	if !a.Equal(b) {
		t.Error("expected vectors with only trailing zeros to be equal")
	}
}

func TestLCS(t *testing.T) {
	a := New()
	a.Add(1, 2)
	b := New()
	b.Add(1, 3)
	b.Add(2, 5)

	got := a.LCS(b)
	if got.Get(1) != 5 || got.Get(2) != 5 {
		t.Errorf("unexpected lcs result: %+v", got)
	}
}

func TestWithAndWithRemovedDoNotMutateReceiver(t *testing.T) {
	a := New()
	a.Add(1, 4)

	b := a.With(1, 9)
	if a.Get(1) != 4 {
		t.Errorf("With mutated receiver: got %d", a.Get(1))
	}
	if b.Get(1) != 9 {
		t.Errorf("With did not apply: got %d", b.Get(1))
	}

	c := a.WithRemoved(1, 1)
	if a.Get(1) != 4 {
		t.Errorf("WithRemoved mutated receiver: got %d", a.Get(1))
	}
	if c.Get(1) != 3 {
		t.Errorf("WithRemoved did not apply: got %d", c.Get(1))
	}
}
