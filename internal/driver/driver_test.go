package driver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

type recordingManager struct {
	name string
	log  *[]string
	mu   *sync.Mutex
	err  error
}

func (m *recordingManager) Tick(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.log = append(*m.log, m.name)
	return m.err
}

func TestDriver_Tick(t *testing.T) {
	tests := map[string]struct {
		failing string
		expLog  string
		expErr  string
	}{
		"all succeed": {
			expLog: "reaper,access",
		},
		"first fails": {
			failing: "reaper",
			expLog:  "reaper",
			expErr:  "ticking reaper: boom",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var (
				log []string
				mu  sync.Mutex
			)
			d := NewDriver()
			for _, n := range []string{"reaper", "access"} {
				m := &recordingManager{name: n, log: &log, mu: &mu}
				if n == tt.failing {
					m.err = errors.New("boom")
				}
				if err := d.Add(n, m); err != nil {
					t.Fatalf("Add(%s) error: %v", n, err)
				}
			}

			err := d.Tick(t.Context())
			if tt.expErr != "" {
				testutil.AssertErrorContains(t, err, tt.expErr)
			} else if err != nil {
				t.Fatalf("Tick() error: %v", err)
			}
			testutil.AssertEqual(t, "order", strings.Join(log, ","), tt.expLog)
		})
	}
}

func TestDriver_AddDuplicate(t *testing.T) {
	var (
		log []string
		mu  sync.Mutex
	)
	d := NewDriver()
	m := &recordingManager{name: "reaper", log: &log, mu: &mu}
	if err := d.Add("reaper", m); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	testutil.AssertErrorContains(t, d.Add("reaper", m), `manager "reaper" already registered`)
}

func TestDriver_Start(t *testing.T) {
	var (
		log []string
		mu  sync.Mutex
	)
	d := NewDriver(WithTickLength(5 * time.Millisecond))
	if err := d.Add("reaper", &recordingManager{name: "reaper", log: &log, mu: &mu}); err != nil {
		t.Fatalf("Add() error: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, "ticked", len(log) > 0, true)
}
