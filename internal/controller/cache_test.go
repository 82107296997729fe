package controller

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pixil98/go-testutil"
)

func TestGameDataCache(t *testing.T) {
	c := NewGameDataCache()
	testutil.AssertEqual(t, "empty index", c.IndexOf([]byte{1}), -1)

	testutil.AssertEqual(t, "first key", c.Add([]byte{1}), 0)
	testutil.AssertEqual(t, "second key", c.Add([]byte{2}), 1)
	testutil.AssertEqual(t, "index", c.IndexOf([]byte{2}), 1)
	testutil.AssertEqual(t, "len", c.Len(), 2)

	got, ok := c.Get(0)
	testutil.AssertEqual(t, "found", ok, true)
	if diff := cmp.Diff([]byte{1}, got); diff != "" {
		t.Errorf("entry mismatch (-want +got):\n%s", diff)
	}

	_, ok = c.Get(2)
	testutil.AssertEqual(t, "past end", ok, false)
	_, ok = c.Get(-1)
	testutil.AssertEqual(t, "negative", ok, false)

	c.Clear()
	testutil.AssertEqual(t, "cleared len", c.Len(), 0)
	testutil.AssertEqual(t, "cleared index", c.IndexOf([]byte{1}), -1)
}

func TestGameDataCache_CopiesInput(t *testing.T) {
	c := NewGameDataCache()
	data := []byte{1, 2}
	c.Add(data)
	data[0] = 9

	testutil.AssertEqual(t, "original kept", c.IndexOf([]byte{1, 2}), 0)
}

func TestGameDataCache_Wraps(t *testing.T) {
	c := NewGameDataCache()
	for i := range CacheSize {
		c.Add([]byte{byte(i), 0})
	}
	testutil.AssertEqual(t, "full", c.Len(), CacheSize)

	key := c.Add([]byte{0xFF, 0xFF})
	testutil.AssertEqual(t, "overwrites oldest", key, 0)
	testutil.AssertEqual(t, "len capped", c.Len(), CacheSize)
	testutil.AssertEqual(t, "oldest gone", c.IndexOf([]byte{0, 0}), -1)
	testutil.AssertEqual(t, "next oldest kept", c.IndexOf([]byte{1, 0}), 1)
}
