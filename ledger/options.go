package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
)

const DefaultRetryBudget = 3

type Options struct {
	// RetryBudget is the number of extra attempts Commit makes after losing
	// the publish race; a commit runs at most RetryBudget+1 times.
	RetryBudget int `json:"retry_budget"`
	// RebalanceOnDelete makes Tx.Delete rebalance the tree. Off by default,
	// in which case only insert-built trees are guaranteed to be balanced.
	RebalanceOnDelete bool `json:"rebalance_on_delete"`

	Logger  zerolog.Logger `json:"-"`
	Metrics *Metrics       `json:"-"`
}

func DefaultOptions() Options {
	return Options{
		RetryBudget: DefaultRetryBudget,
		Logger:      zerolog.Nop(),
	}
}

// ParseOptions overlays a JSON document on top of DefaultOptions. An empty
// string yields the defaults.
func ParseOptions(raw string) (Options, error) {
	opts := DefaultOptions()
	if raw == "" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return opts, fmt.Errorf("error parsing ledger options: %w", err)
	}
	if opts.RetryBudget < 0 {
		return opts, fmt.Errorf("retry_budget must not be negative, got %d", opts.RetryBudget)
	}
	return opts, nil
}
