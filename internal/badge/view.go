package badge

import "riskscan/internal/model"

// Kind is the rendered state of a badge.
type Kind string

const (
	KindScanning  Kind = "scanning"
	KindKnownRisk Kind = "known_risk"
	KindUnknown   Kind = "unknown"
)

// View is everything a surface needs to draw the badge.
type View struct {
	Kind        Kind            `json:"kind"`
	Token       model.Token     `json:"token"`
	RiskLevel   model.RiskLevel `json:"risk_level,omitempty"`
	Tag         string          `json:"tag"`
	TagDisabled bool            `json:"tag_disabled"`
	Animated    bool            `json:"animated"`
	Tooltip     Tooltip         `json:"tooltip"`
	Retry       *RetryView      `json:"retry,omitempty"`
}

// Tooltip is the informational help text shown on hover or focus.
type Tooltip struct {
	Attribution string `json:"attribution"`
	Provider    Link   `json:"provider"`
	Disclaimer  string `json:"disclaimer"`
	LearnMore   string `json:"learn_more"`
	Docs        Link   `json:"docs"`
}

// Link is an external documentation link.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// RetryView is the retry control shown next to an unknown result.
type RetryView struct {
	Enabled bool   `json:"enabled"`
	Tooltip string `json:"tooltip"`
}
