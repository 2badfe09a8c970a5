// Package verifier corroborates a claimed success before the orchestrator accepts it.
package verifier

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/mediafetch/internal/core/classify"
	"github.com/vietddude/mediafetch/internal/core/domain"
	"github.com/vietddude/mediafetch/internal/infra/provider"
)

// DefaultThreshold is the minimum confidence for a claimed success to be accepted.
const DefaultThreshold = 0.7

// Method tags reported in domain.Verification.
const (
	MethodNone          = "none"
	MethodRules         = "rules"
	MethodIndependent   = "independent"
	MethodRulesFallback = "rules_fallback"
)

// Modes accepted by FromMode.
const (
	ModeNone        = "none"
	ModeNull        = "null"
	ModeRules       = "rules"
	ModeIndependent = "independent"
)

// Verifier scores a claimed success. It must not modify the claim.
type Verifier interface {
	Verify(ctx context.Context, req domain.Request, claim domain.Success) domain.Verification
}

// Null accepts everything.
type Null struct{}

// Verify implements Verifier.
func (Null) Verify(context.Context, domain.Request, domain.Success) domain.Verification {
	return domain.Verification{Confidence: 1, Method: MethodNone}
}

// Rules scores the artifact reference from deterministic signals.
type Rules struct{}

// Verify implements Verifier.
func (Rules) Verify(_ context.Context, _ domain.Request, claim domain.Success) domain.Verification {
	score, reason := RulesScore(claim)
	return domain.Verification{Confidence: score, Method: MethodRules, Reason: reason}
}

// RulesScore returns the rules confidence for claim and the signals that contributed.
func RulesScore(claim domain.Success) (float64, string) {
	sig := classify.ArtifactSignals(claim.ArtifactRef, claim.ContentType)
	if sig.Excluded {
		return 0, "excluded pattern"
	}
	if !sig.Parsed {
		return 0, "not a url"
	}

	score := 0.3
	var hits []string
	add := func(w float64, name string) {
		score += w
		hits = append(hits, name)
	}
	if sig.HTTPS {
		add(0.1, "https")
	}
	if sig.Blob {
		add(0.4, "blob")
	}
	if sig.MediaSuffix {
		add(0.35, "suffix")
	}
	if sig.DeliveryHost {
		add(0.3, "delivery_host")
	}
	if sig.MediaType {
		add(0.2, "content_type")
	}
	if sig.DownloadKeyword && !sig.MediaSuffix && !sig.DeliveryHost && !sig.MediaType {
		add(0.1, "download_keyword")
	}
	if claim.ProviderTag != "" && claim.MethodTag != "" {
		add(0.05, "tags")
	}

	return round(math.Min(score, 1)), strings.Join(hits, ",")
}

// Independent re-attempts the request through a different adapter and scores agreement,
// averaged with the rules score.
type Independent struct {
	adapters []provider.Adapter
	timeout  time.Duration
}

// NewIndependent creates an Independent verifier that probes with adapters.
func NewIndependent(adapters []provider.Adapter, timeout time.Duration) *Independent {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Independent{adapters: adapters, timeout: timeout}
}

// Verify implements Verifier.
func (v *Independent) Verify(ctx context.Context, req domain.Request, claim domain.Success) domain.Verification {
	rules, rulesReason := RulesScore(claim)

	probe := v.pick(req.Category, claim.ProviderTag)
	if probe == nil {
		return domain.Verification{Confidence: rules, Method: MethodRulesFallback, Reason: rulesReason}
	}

	res := v.attempt(ctx, probe, req)
	agreement, why := agreementScore(claim, res)
	return domain.Verification{
		Confidence: round((agreement + rules) / 2),
		Method:     MethodIndependent,
		Reason:     fmt.Sprintf("probe %s: %s; rules: %s", probe.Tag(), why, rulesReason),
	}
}

// attempt runs the probe, converting a panic into a transient failure.
func (v *Independent) attempt(ctx context.Context, probe provider.Adapter, req domain.Request) (res domain.AdapterResult) {
	defer func() {
		if p := recover(); p != nil {
			res = domain.Failed(domain.ReasonTransient, fmt.Sprintf("probe panic: %v", p))
		}
	}()
	res = probe.Attempt(ctx, req, v.timeout)
	if res.Success == nil && res.Failure == nil {
		res = domain.Failed(domain.ReasonTransient, "probe returned an empty result")
	}
	return res
}

func (v *Independent) pick(category domain.Category, claimant string) provider.Adapter {
	for _, a := range v.adapters {
		if a.Tag() != claimant && provider.Supports(a, category) {
			return a
		}
	}
	return nil
}

func agreementScore(claim domain.Success, probe domain.AdapterResult) (float64, string) {
	if !probe.OK() {
		return 0.3, "probe failed (" + string(probe.Reason()) + ")"
	}
	other := probe.Success
	switch {
	case other.ArtifactRef == claim.ArtifactRef:
		return 1, "identical reference"
	case sameHost(other.ArtifactRef, claim.ArtifactRef):
		return 0.9, "same host"
	case classify.IsPlausibleArtifact(other.ArtifactRef, other.ContentType) &&
		classify.IsPlausibleArtifact(claim.ArtifactRef, claim.ContentType):
		return 0.75, "both plausible"
	default:
		return 0.3, "probe disagreed"
	}
}

func sameHost(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil || ua.Host == "" {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

// FromMode builds the verifier for a configured mode. "none" and "" return nil,
// meaning no verification stage.
func FromMode(mode string, adapters []provider.Adapter, timeout time.Duration) (Verifier, error) {
	switch strings.ToLower(mode) {
	case "", ModeNone:
		return nil, nil
	case ModeNull:
		return Null{}, nil
	case ModeRules:
		return Rules{}, nil
	case ModeIndependent:
		return NewIndependent(adapters, timeout), nil
	default:
		return nil, fmt.Errorf("unknown verifier mode %q", mode)
	}
}
