package access

import (
	"fmt"
	"net/netip"

	"github.com/pixil98/go-errors"

	"github.com/pixil98/go-kaillera/internal/relay"
)

// Rule grants an access level to every address inside Prefix. Prefix may be
// a CIDR block or a single address.
type Rule struct {
	Prefix   string `json:"prefix"`
	Level    string `json:"level"`
	Silenced bool   `json:"silenced,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

func (r *Rule) Validate() error {
	el := errors.NewErrorList()

	if _, err := r.prefix(); err != nil {
		el.Add(err)
	}
	if _, err := relay.ParseAccessLevel(r.Level); err != nil {
		el.Add(err)
	}

	return el.Err()
}

func (r *Rule) prefix() (netip.Prefix, error) {
	if r.Prefix == "" {
		return netip.Prefix{}, fmt.Errorf("prefix is required")
	}
	if p, err := netip.ParsePrefix(r.Prefix); err == nil {
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(r.Prefix)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("parsing prefix %q: %w", r.Prefix, err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// compiled is a Rule with its fields parsed.
type compiled struct {
	id       string
	prefix   netip.Prefix
	level    relay.AccessLevel
	silenced bool
}

func compile(id string, r *Rule) (compiled, error) {
	p, err := r.prefix()
	if err != nil {
		return compiled{}, err
	}
	level, err := relay.ParseAccessLevel(r.Level)
	if err != nil {
		return compiled{}, err
	}
	return compiled{id: id, prefix: p, level: level, silenced: r.Silenced}, nil
}
