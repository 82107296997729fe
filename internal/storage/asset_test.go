package storage

import (
	"fmt"
	"testing"

	"github.com/pixil98/go-testutil"
)

// noteSpec is a minimal ValidatingSpec used across the storage tests.
type noteSpec struct {
	Text string `json:"text"`
}

func (s *noteSpec) Validate() error {
	if s.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func TestAsset_Validate(t *testing.T) {
	tests := map[string]struct {
		asset  Asset[*noteSpec]
		expErr string
	}{
		"valid": {
			asset: Asset[*noteSpec]{Version: 1, Identifier: "lan-admins", Spec: &noteSpec{Text: "x"}},
		},
		"missing version": {
			asset:  Asset[*noteSpec]{Identifier: "lan-admins", Spec: &noteSpec{Text: "x"}},
			expErr: "version must be set",
		},
		"missing id": {
			asset:  Asset[*noteSpec]{Version: 1, Spec: &noteSpec{Text: "x"}},
			expErr: "id must be set",
		},
		"id with spaces": {
			asset:  Asset[*noteSpec]{Version: 1, Identifier: "lan admins", Spec: &noteSpec{Text: "x"}},
			expErr: "id must be alphanumeric",
		},
		"id with dots": {
			asset:  Asset[*noteSpec]{Version: 1, Identifier: "10.0.0.1", Spec: &noteSpec{Text: "x"}},
			expErr: "id must be alphanumeric",
		},
		"invalid spec": {
			asset:  Asset[*noteSpec]{Version: 1, Identifier: "lan-admins", Spec: &noteSpec{}},
			expErr: "spec: text is required",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.asset.Validate()
			if tt.expErr == "" {
				testutil.AssertEqual(t, "error", err, nil)
				return
			}
			testutil.AssertErrorContains(t, err, tt.expErr)
		})
	}
}
