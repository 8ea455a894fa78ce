package gzstream

import "testing"

func TestMemberIndex(t *testing.T) {
	var ix memberIndex

	if _, ok := ix.lookup(0); ok {
		t.Error("lookup on empty index found something")
	}

	// out of order and with a duplicate
	ix.add(300, 2000)
	ix.add(0, 0)
	ix.add(150, 1000)
	ix.add(150, 1000)

	if len(ix.members) != 3 {
		t.Fatal("members after dedupe:", len(ix.members))
	}
	for i := 1; i < len(ix.members); i++ {
		if ix.members[i-1].comp >= ix.members[i].comp {
			t.Fatal("index not sorted:", ix.members)
		}
	}

	cases := []struct {
		target int64
		comp   int64
		ok     bool
	}{
		{0, 0, true},
		{999, 0, true},
		{1000, 150, true},
		{1500, 150, true},
		{2000, 300, true},
		{1 << 40, 300, true},
	}
	for _, c := range cases {
		m, ok := ix.lookup(c.target)
		if ok != c.ok || (ok && m.comp != c.comp) {
			t.Error("lookup", c.target, "=", m, ok, "want comp", c.comp)
		}
	}
}
