package badge

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"riskscan/internal/fetcher"
	"riskscan/internal/model"
)

type scriptedSource struct {
	mu       sync.Mutex
	calls    int
	gate     chan struct{}
	outcomes []error
	levels   []model.RiskLevel
}

// FetchRiskToken returns levels[i] or outcomes[i] for the i-th call; the last entry repeats.
func (s *scriptedSource) FetchRiskToken(ctx context.Context, address string, chainID uint64) (model.RiskResult, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if idx >= len(s.outcomes) {
		idx = len(s.outcomes) - 1
	}
	if err := s.outcomes[idx]; err != nil {
		return model.RiskResult{}, err
	}
	return model.RiskResult{ChainID: chainID, Address: address, RiskLevel: s.levels[idx]}, nil
}

func (s *scriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errProvider = errors.New("provider down")

func showRisk(show bool) Preferences {
	return PreferenceFunc(func() bool { return show })
}

func newBadge(t *testing.T, src fetcher.RiskSource, show bool) *Badge {
	t.Helper()
	f := fetcher.New(src)
	t.Cleanup(f.Close)
	b := New(f, showRisk(show), nil, nil)
	t.Cleanup(b.Close)
	return b
}

func waitView(t *testing.T, b *Badge, cond func(*View) bool) *View {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if view := b.Render(); view != nil && cond(view) {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("view condition not met before deadline")
	return nil
}

func resolved(v *View) bool { return v.Kind != KindScanning }

func TestRenderHiddenWhenPreferenceOff(t *testing.T) {
	src := &scriptedSource{outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskLow}}
	b := newBadge(t, src, false)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA"})

	if view := b.Render(); view != nil {
		t.Fatalf("expected no output, got %+v", view)
	}
	if b.Retry() {
		t.Fatalf("hidden badge must not retry")
	}
	time.Sleep(20 * time.Millisecond)
	if src.Calls() != 0 {
		t.Fatalf("expected no request, got %d", src.Calls())
	}
}

func TestRenderScanningWhilePending(t *testing.T) {
	src := &scriptedSource{gate: make(chan struct{}), outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskLow}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA"})
	defer close(src.gate)

	view := b.Render()
	if view.Kind != KindScanning || view.Tag != "Scanning Risk" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if !view.TagDisabled || !view.Animated {
		t.Fatalf("scanning indicator must be disabled and animated")
	}
	if view.Retry != nil {
		t.Fatalf("no retry while scanning")
	}
	if view.Tooltip.Provider.Href != ProviderURL {
		t.Fatalf("tooltip missing provider link")
	}
}

func TestRenderWithoutTokenStaysPending(t *testing.T) {
	src := &scriptedSource{outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskLow}}
	b := newBadge(t, src, true)

	if view := b.Render(); view.Kind != KindScanning {
		t.Fatalf("expected scanning, got %s", view.Kind)
	}
	time.Sleep(20 * time.Millisecond)
	if src.Calls() != 0 {
		t.Fatalf("expected no request without a token, got %d", src.Calls())
	}
}

func TestRenderKnownRisk(t *testing.T) {
	src := &scriptedSource{outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskLow}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA"})

	view := waitView(t, b, resolved)
	if view.Kind != KindKnownRisk || view.Tag != "Low Risk" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Retry != nil {
		t.Fatalf("retry must not be offered on success")
	}
	if b.Retry() {
		t.Fatalf("retry must be a no-op on success")
	}
}

func TestRenderUnknownOffersRetry(t *testing.T) {
	src := &scriptedSource{outcomes: []error{errProvider}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA"})

	view := waitView(t, b, resolved)
	if view.Kind != KindUnknown || view.Tag != "Unknown" || !view.TagDisabled {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Retry == nil || !view.Retry.Enabled {
		t.Fatalf("expected enabled retry, got %+v", view.Retry)
	}
	if view.Retry.Tooltip != "Risk scanning failed. Press the button to retry." {
		t.Fatalf("retry tooltip mismatch: %q", view.Retry.Tooltip)
	}
}

func TestRetryIsOneShot(t *testing.T) {
	src := &scriptedSource{outcomes: []error{errProvider}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xBBB"})
	waitView(t, b, resolved)

	if !b.Retry() {
		t.Fatalf("first retry should run")
	}
	view := waitView(t, b, func(v *View) bool { return v.Kind == KindUnknown && src.Calls() == 2 })
	if view.Retry == nil || view.Retry.Enabled {
		t.Fatalf("retry should be disabled after use, got %+v", view.Retry)
	}
	if view.Retry.Tooltip != "Risk scanning failed." {
		t.Fatalf("retry tooltip mismatch: %q", view.Retry.Tooltip)
	}

	if b.Retry() {
		t.Fatalf("second retry must be a no-op")
	}
	time.Sleep(20 * time.Millisecond)
	if src.Calls() != 2 {
		t.Fatalf("expected 2 requests, got %d", src.Calls())
	}
}

func TestTokenChangeResetsRetry(t *testing.T) {
	src := &scriptedSource{outcomes: []error{errProvider}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xBBB"})
	waitView(t, b, resolved)
	b.Retry()
	waitView(t, b, func(v *View) bool { return v.Kind == KindUnknown && !v.Retry.Enabled })

	b.SetToken(&model.Token{ChainID: 97, Address: "0xBBB"})
	view := waitView(t, b, resolved)
	if view.Retry == nil || !view.Retry.Enabled {
		t.Fatalf("retry should be enabled for the new token, got %+v", view.Retry)
	}
}

func TestScenarioMediumRiskTooltip(t *testing.T) {
	src := &scriptedSource{outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskMedium}}
	b := newBadge(t, src, true)
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA0000000000000000000000000000000000000"})

	view := waitView(t, b, resolved)
	if view.Tag != "Medium Risk" {
		t.Fatalf("tag mismatch: %q", view.Tag)
	}
	if view.Tooltip.Provider.Text != "AvengerDAO" || view.Tooltip.Provider.Href != "https://www.avengerdao.org" {
		t.Fatalf("provider link mismatch: %+v", view.Tooltip.Provider)
	}
	if view.Tooltip.Docs.Href != "https://www.avengerdao.org/docs/meter/consumer-api/RiskBand" {
		t.Fatalf("docs link mismatch: %+v", view.Tooltip.Docs)
	}
	if view.Tooltip.Attribution != "Risk scan results are provided by a third party" {
		t.Fatalf("attribution mismatch: %q", view.Tooltip.Attribution)
	}

	var buf bytes.Buffer
	if err := RenderHTML(&buf, view); err != nil {
		t.Fatalf("render html: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Medium Risk", ProviderURL, RiskBandDocsURL} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q: %s", want, html)
		}
	}
}

func TestScenarioFailureThenRetrySucceeds(t *testing.T) {
	src := &scriptedSource{
		outcomes: []error{errProvider, nil},
		levels:   []model.RiskLevel{"", model.RiskLow},
	}
	b := newBadge(t, src, true)

	views := make(chan *View, 8)
	b.OnChange(func(v *View) { views <- v })
	b.SetToken(&model.Token{ChainID: 56, Address: "0xBBB0000000000000000000000000000000000000"})

	view := waitView(t, b, resolved)
	if view.Tag != "Unknown" || view.Retry == nil || !view.Retry.Enabled {
		t.Fatalf("expected unknown with retry, got %+v", view)
	}

	if !b.Retry() {
		t.Fatalf("retry should run")
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Kind != KindKnownRisk {
				continue
			}
			if v.Tag != "Low Risk" {
				t.Fatalf("tag mismatch: %q", v.Tag)
			}
			if v.Retry != nil {
				t.Fatalf("retry control should disappear")
			}
			return
		case <-deadline:
			t.Fatalf("no known-risk view after retry")
		}
	}
}

func TestDisabledRetryStaysDisabled(t *testing.T) {
	src := &scriptedSource{outcomes: []error{errProvider}}
	b := newBadge(t, src, true)
	b.DisableRetry()
	b.SetToken(&model.Token{ChainID: 56, Address: "0xBBB"})

	view := waitView(t, b, resolved)
	if view.Retry == nil || view.Retry.Enabled {
		t.Fatalf("retry should render disabled, got %+v", view.Retry)
	}
	if view.Retry.Tooltip != "Risk scanning failed." {
		t.Fatalf("retry tooltip mismatch: %q", view.Retry.Tooltip)
	}
	if b.Retry() {
		t.Fatalf("disabled retry must not run")
	}

	b.SetToken(&model.Token{ChainID: 97, Address: "0xBBB"})
	view = waitView(t, b, resolved)
	if view.Retry == nil || view.Retry.Enabled {
		t.Fatalf("token change must not re-enable a disabled retry, got %+v", view.Retry)
	}
	time.Sleep(20 * time.Millisecond)
	if src.Calls() != 2 {
		t.Fatalf("expected one request per token, got %d", src.Calls())
	}
}

func TestClosedBadgeIgnoresResults(t *testing.T) {
	src := &scriptedSource{gate: make(chan struct{}), outcomes: []error{nil}, levels: []model.RiskLevel{model.RiskLow}}
	f := fetcher.New(src)
	defer f.Close()

	b := New(f, showRisk(true), nil, nil)
	called := make(chan struct{}, 1)
	b.OnChange(func(*View) { called <- struct{}{} })
	b.SetToken(&model.Token{ChainID: 56, Address: "0xAAA"})
	b.Render()

	b.Close()
	close(src.gate)

	key := model.Key{ChainID: 56, Address: "0xAAA"}
	if _, err := f.Load(context.Background(), key); err != nil {
		t.Fatalf("load: %v", err)
	}
	select {
	case <-called:
		t.Fatalf("closed badge must not be notified")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRenderText(t *testing.T) {
	view := &View{Tag: "Scanning Risk", Animated: true, Token: model.Token{Symbol: "CAKE"}}
	if got := RenderText(view); got != "[Scanning Risk...] CAKE" {
		t.Fatalf("got %q", got)
	}
	if RenderText(nil) != "" {
		t.Fatalf("nil view renders nothing")
	}
}
