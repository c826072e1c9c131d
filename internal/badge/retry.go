package badge

import (
	"sync"

	"riskscan/internal/i18n"
	"riskscan/internal/model"
)

// Retry is the one-shot retry control. It allows a single activation per token
// key and resets whenever the key it belongs to changes.
type Retry struct {
	mu         sync.Mutex
	owner      model.Key
	hasOwner   bool
	hasRetried bool
	disabled   bool
}

// Sync binds the control to key, clearing the used retry when the key differs.
func (r *Retry) Sync(key model.Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasOwner && r.owner == key {
		return
	}
	r.owner = key
	r.hasOwner = true
	r.hasRetried = false
}

// Disable turns the control off for good. Sync does not re-enable it.
func (r *Retry) Disable() {
	r.mu.Lock()
	r.disabled = true
	r.mu.Unlock()
}

// Activate runs fn on the first activation and reports whether it ran.
func (r *Retry) Activate(fn func()) bool {
	r.mu.Lock()
	if r.hasRetried || r.disabled {
		r.mu.Unlock()
		return false
	}
	r.hasRetried = true
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

// Enabled reports whether the control can still be activated.
func (r *Retry) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.hasRetried && !r.disabled
}

// View renders the control and its tooltip.
func (r *Retry) View(tr *i18n.Translator) *RetryView {
	enabled := r.Enabled()
	tooltip := tr.T(msgRetryFailed)
	if enabled {
		tooltip += " " + tr.T(msgRetryPossible)
	}
	return &RetryView{Enabled: enabled, Tooltip: tooltip}
}
