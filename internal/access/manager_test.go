package access

import (
	"net/netip"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-kaillera/internal/relay"
	"github.com/pixil98/go-kaillera/internal/storage"
)

var _ relay.AccessManager = (*Manager)(nil)

func newTestManager(t *testing.T, rules map[string]*Rule, opts ...ManagerOpt) (*Manager, *storage.FileStore[*Rule]) {
	t.Helper()
	store, err := storage.NewFileStore[*Rule](t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	for id, r := range rules {
		if err := store.Save(id, r); err != nil {
			t.Fatalf("Save(%s) error: %v", id, err)
		}
	}
	return NewManager(store, opts...), store
}

func TestRule_Validate(t *testing.T) {
	tests := map[string]struct {
		rule   Rule
		expErr string
	}{
		"cidr": {
			rule: Rule{Prefix: "10.0.0.0/8", Level: "moderator"},
		},
		"single address": {
			rule: Rule{Prefix: "192.168.1.20", Level: "admin"},
		},
		"ipv6": {
			rule: Rule{Prefix: "2001:db8::/32", Level: "banned"},
		},
		"missing prefix": {
			rule:   Rule{Level: "normal"},
			expErr: "prefix is required",
		},
		"bad prefix": {
			rule:   Rule{Prefix: "not-an-ip", Level: "normal"},
			expErr: `parsing prefix "not-an-ip"`,
		},
		"bad level": {
			rule:   Rule{Prefix: "10.0.0.1", Level: "wizard"},
			expErr: "unknown access level: wizard",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.expErr == "" {
				testutil.AssertEqual(t, "error", err, nil)
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}

func TestManager_AccessLevel(t *testing.T) {
	rules := map[string]*Rule{
		"lan":       {Prefix: "10.0.0.0/8", Level: "elevated"},
		"lan-admin": {Prefix: "10.1.0.0/16", Level: "admin"},
		"owner":     {Prefix: "10.1.2.3", Level: "superadmin"},
		"spammers":  {Prefix: "203.0.113.0/24", Level: "banned"},
	}

	tests := map[string]struct {
		addr     string
		defLevel *relay.AccessLevel
		exp      relay.AccessLevel
	}{
		"broad prefix": {
			addr: "10.9.9.9",
			exp:  relay.AccessElevated,
		},
		"narrower prefix wins": {
			addr: "10.1.9.9",
			exp:  relay.AccessAdmin,
		},
		"exact address wins": {
			addr: "10.1.2.3",
			exp:  relay.AccessSuperAdmin,
		},
		"banned range": {
			addr: "203.0.113.50",
			exp:  relay.AccessBanned,
		},
		"ipv4 mapped ipv6": {
			addr: "::ffff:10.1.2.3",
			exp:  relay.AccessSuperAdmin,
		},
		"no match": {
			addr: "198.51.100.1",
			exp:  relay.AccessNormal,
		},
		"no match custom default": {
			addr:     "198.51.100.1",
			defLevel: ptr(relay.AccessElevated),
			exp:      relay.AccessElevated,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var opts []ManagerOpt
			if tt.defLevel != nil {
				opts = append(opts, WithDefaultLevel(*tt.defLevel))
			}
			m, _ := newTestManager(t, rules, opts...)
			testutil.AssertEqual(t, "level", m.AccessLevel(netip.MustParseAddr(tt.addr)), tt.exp)
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestManager_Silences(t *testing.T) {
	m, _ := newTestManager(t, map[string]*Rule{
		"quiet": {Prefix: "10.0.0.5", Level: "normal", Silenced: true},
	})
	loud := netip.MustParseAddr("10.0.0.6")

	testutil.AssertEqual(t, "rule silence", m.IsSilenced(netip.MustParseAddr("10.0.0.5")), true)
	testutil.AssertEqual(t, "not silenced", m.IsSilenced(loud), false)

	m.Silence(loud, time.Minute)
	testutil.AssertEqual(t, "temporary silence", m.IsSilenced(loud), true)

	m.Unsilence(loud)
	testutil.AssertEqual(t, "unsilenced", m.IsSilenced(loud), false)

	m.Silence(loud, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	testutil.AssertEqual(t, "silence expired", m.IsSilenced(loud), false)
}

func TestManager_AddRemoveRule(t *testing.T) {
	m, store := newTestManager(t, nil)
	addr := netip.MustParseAddr("192.0.2.7")

	if err := m.AddRule("troll", &Rule{Prefix: "192.0.2.7", Level: "banned"}); err != nil {
		t.Fatalf("AddRule() error: %v", err)
	}
	testutil.AssertEqual(t, "banned", m.AccessLevel(addr), relay.AccessBanned)
	_, ok := store.Get("troll")
	testutil.AssertEqual(t, "persisted", ok, true)

	err := m.AddRule("bad", &Rule{Prefix: "192.0.2.8", Level: "wizard"})
	testutil.AssertErrorContains(t, err, "unknown access level")

	if err := m.RemoveRule("troll"); err != nil {
		t.Fatalf("RemoveRule() error: %v", err)
	}
	testutil.AssertEqual(t, "unbanned", m.AccessLevel(addr), relay.AccessNormal)
}

func TestManager_TickReloads(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore[*Rule](dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	m := NewManager(store)
	addr := netip.MustParseAddr("192.0.2.9")

	// A second store over the same directory stands in for an operator
	// editing the rule files.
	other, err := storage.NewFileStore[*Rule](dir)
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	if err := other.Save("mod", &Rule{Prefix: "192.0.2.9", Level: "moderator"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	testutil.AssertEqual(t, "before tick", m.AccessLevel(addr), relay.AccessNormal)

	if err := m.Tick(t.Context()); err != nil {
		t.Fatalf("Tick() error: %v", err)
	}
	testutil.AssertEqual(t, "after tick", m.AccessLevel(addr), relay.AccessModerator)
}
