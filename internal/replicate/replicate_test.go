package replicate

import "testing"

func TestVarFiresOnChangeOnly(t *testing.T) {
	var v Var[int]
	var calls int
	var lastOld, lastNew int
	v.OnChange(func(old, new int) {
		calls++
		lastOld, lastNew = old, new
	})

	v.Set(0) // same as zero value
	if calls != 0 {
		t.Fatalf("callback fired for unchanged value")
	}

	v.Set(5)
	if calls != 1 || lastOld != 0 || lastNew != 5 {
		t.Fatalf("calls=%d old=%d new=%d", calls, lastOld, lastNew)
	}

	v.Set(5)
	if calls != 1 {
		t.Fatalf("callback fired again for unchanged value")
	}

	v.Set(3)
	if calls != 2 || lastOld != 5 || lastNew != 3 {
		t.Fatalf("calls=%d old=%d new=%d", calls, lastOld, lastNew)
	}
	if v.Get() != 3 {
		t.Fatalf("Get()=%d", v.Get())
	}
}

func TestVarMultipleObservers(t *testing.T) {
	var v Var[string]
	var a, b int
	v.OnChange(func(_, _ string) { a++ })
	v.OnChange(func(_, _ string) { b++ })

	v.Set("x")
	if a != 1 || b != 1 {
		t.Fatalf("a=%d b=%d", a, b)
	}
}

func TestListMutations(t *testing.T) {
	var l List[string]
	var seen [][]string
	l.OnChange(func(items []string) { seen = append(seen, items) })

	l.Append("a")
	l.Append("b")
	l.Set(0, "c")
	l.Replace([]string{"x", "y", "z"})

	if l.Len() != 3 || l.Get(1) != "y" {
		t.Fatalf("len=%d get(1)=%q", l.Len(), l.Get(1))
	}
	if len(seen) != 4 {
		t.Fatalf("want 4 notifications, got %d", len(seen))
	}
	last := seen[len(seen)-1]
	if len(last) != 3 || last[0] != "x" {
		t.Fatalf("last notification %v", last)
	}
}

func TestObserversMayReenter(t *testing.T) {
	var v Var[int]
	var fromObserver int
	v.OnChange(func(_, _ int) {
		fromObserver = v.Get()
		v.OnChange(func(_, _ int) {})
	})
	v.Set(7)
	if fromObserver != 7 {
		t.Fatalf("observer read %d, want 7", fromObserver)
	}

	var l List[string]
	var seenLen int
	l.OnChange(func([]string) { seenLen = len(l.All()) })
	l.Append("a")
	if seenLen != 1 {
		t.Fatalf("observer saw len %d, want 1", seenLen)
	}
}

func TestListAllCopies(t *testing.T) {
	var l List[int]
	l.Replace([]int{1, 2, 3})

	got := l.All()
	got[0] = 99
	if l.Get(0) != 1 {
		t.Fatalf("All() must copy, internal state mutated to %d", l.Get(0))
	}
}
