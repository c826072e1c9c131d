// Package badge renders the risk scan badge shown next to a token in the swap view.
//
// A Badge is one mounted instance: it holds the selected token, the one-shot
// retry control, and a change callback fired when the shared fetcher resolves
// the token's lookup. Rendering is gated by the user's show-risk preference.
package badge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"riskscan/internal/i18n"
	"riskscan/internal/model"
)

// Preferences exposes the user's display settings.
type Preferences interface {
	ShowRiskScanning() bool
}

// PreferenceFunc adapts a function to Preferences.
type PreferenceFunc func() bool

func (f PreferenceFunc) ShowRiskScanning() bool { return f() }

// Source is the part of the risk fetcher a badge depends on.
type Source interface {
	Request(token *model.Token) model.Snapshot
	Revalidate(ctx context.Context, key model.Key) (model.Snapshot, error)
	Subscribe(fn func(model.Snapshot)) func()
}

// Badge is a mounted risk badge.
type Badge struct {
	source Source
	prefs  Preferences
	tr     *i18n.Translator
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	token       *model.Token
	retry       Retry
	onChange    func(*View)
	closed      bool
	unsubscribe func()
}

// New mounts a badge. Close must be called when the badge goes away.
func New(source Source, prefs Preferences, tr *i18n.Translator, logger *zap.Logger) *Badge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tr == nil {
		tr = i18n.NewBundle().Translator()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &Badge{
		source: source,
		prefs:  prefs,
		tr:     tr,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	b.unsubscribe = source.Subscribe(b.handle)
	return b
}

// SetToken selects the token to scan. A different chain id or address resets the retry control.
func (b *Badge) SetToken(token *model.Token) {
	var copied *model.Token
	if token != nil {
		t := *token
		copied = &t
	}

	b.mu.Lock()
	b.token = copied
	b.mu.Unlock()

	if key, ok := model.KeyOf(copied); ok {
		b.retry.Sync(key)
	}
}

// DisableRetry marks a mount that cannot take user input, such as a one-shot
// HTTP render. Failures then show the retry control disabled.
func (b *Badge) DisableRetry() {
	b.retry.Disable()
}

// OnChange registers fn to receive a fresh view whenever the token's lookup changes state.
// A nil view means the badge is hidden.
func (b *Badge) OnChange(fn func(*View)) {
	b.mu.Lock()
	b.onChange = fn
	b.mu.Unlock()
}

// Render returns the current view, or nil when the user disabled risk scanning.
func (b *Badge) Render() *View {
	if b.prefs == nil || !b.prefs.ShowRiskScanning() {
		return nil
	}

	b.mu.Lock()
	token := b.token
	b.mu.Unlock()

	snap := b.source.Request(token)

	view := &View{Tooltip: b.tooltip()}
	if token != nil {
		view.Token = *token
	}

	switch {
	case snap.Status == model.StatusSuccess && snap.Result != nil:
		view.Kind = KindKnownRisk
		view.RiskLevel = snap.Result.RiskLevel
		view.Tag = b.tr.T(msgRiskLevel, i18n.Params{"riskLevel": string(snap.Result.RiskLevel)})
	case snap.Status == model.StatusFailure:
		view.Kind = KindUnknown
		view.Tag = b.tr.T(msgUnknown)
		view.TagDisabled = true
		view.Retry = b.retry.View(b.tr)
	default:
		view.Kind = KindScanning
		view.Tag = b.tr.T(msgScanning)
		view.TagDisabled = true
		view.Animated = true
	}
	return view
}

// Retry triggers the single permitted refetch for a failed lookup. It reports
// whether a refetch was started.
func (b *Badge) Retry() bool {
	if b.prefs == nil || !b.prefs.ShowRiskScanning() {
		return false
	}

	b.mu.Lock()
	token := b.token
	closed := b.closed
	b.mu.Unlock()

	key, ok := model.KeyOf(token)
	if !ok || closed {
		return false
	}
	if snap := b.source.Request(token); snap.Status != model.StatusFailure {
		return false
	}

	return b.retry.Activate(func() {
		go func() {
			if _, err := b.source.Revalidate(b.ctx, key); err != nil {
				b.logger.Debug("revalidate interrupted", zap.String("address", key.Address), zap.Error(err))
			}
		}()
	})
}

// Close unmounts the badge. Later fetch results are ignored.
func (b *Badge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.onChange = nil
	unsubscribe := b.unsubscribe
	b.mu.Unlock()

	b.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (b *Badge) handle(snap model.Snapshot) {
	b.mu.Lock()
	fn := b.onChange
	key, ok := model.KeyOf(b.token)
	closed := b.closed
	b.mu.Unlock()

	if closed || fn == nil || !ok || key != snap.Key {
		return
	}
	fn(b.Render())
}

func (b *Badge) tooltip() Tooltip {
	return Tooltip{
		Attribution: b.tr.T(msgAttribution),
		Provider:    Link{Text: ProviderName, Href: ProviderURL},
		Disclaimer:  b.tr.T(msgDisclaimer),
		LearnMore:   b.tr.T(msgLearnMore),
		Docs:        Link{Text: b.tr.T(msgHere), Href: RiskBandDocsURL},
	}
}
