package controller

import (
	"bytes"
	"sync"
)

// CacheSize is the number of frames a v086 client remembers.
const CacheSize = 256

// GameDataCache mirrors the fixed ring of recent frames both ends of a v086
// connection keep, so a repeated frame can be sent as its key.
type GameDataCache struct {
	mu      sync.Mutex
	entries [CacheSize][]byte
	next    int
	size    int
}

func NewGameDataCache() *GameDataCache {
	return &GameDataCache{}
}

// IndexOf returns the key holding data, or -1.
func (c *GameDataCache) IndexOf(data []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := 0; i < c.size; i++ {
		if bytes.Equal(c.entries[i], data) {
			return i
		}
	}
	return -1
}

// Add stores a copy of data over the oldest entry and returns its key.
func (c *GameDataCache) Add(data []byte) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.next
	c.entries[key] = bytes.Clone(data)
	c.next = (c.next + 1) % CacheSize
	if c.size < CacheSize {
		c.size++
	}
	return key
}

func (c *GameDataCache) Get(key int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key < 0 || key >= c.size {
		return nil, false
	}
	return c.entries[key], true
}

func (c *GameDataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *GameDataCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = [CacheSize][]byte{}
	c.next = 0
	c.size = 0
}
