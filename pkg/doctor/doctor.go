// Package doctor validates the DNS and domain setup of a Tutor project before
// it is exposed through a cloudflared tunnel.
//
// Checks never abort the run: each failure is counted as a fatal error or a
// warning, explained on the console and summarized at the end.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/config"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/console"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/dnsprovider"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/doh"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/domain"
	"github.com/ghassanmas/tutor-contrib-cloudflared/pkg/status"
)

// NameserverSetupURL explains how to move a domain's nameservers to Cloudflare
const NameserverSetupURL = "https://developers.cloudflare.com/dns/zone-setups/full-setup/setup/"

// Check names, also used as metric labels
const (
	CheckDefaultDomain = "default_domain"
	CheckSameDomain    = "same_domain"
	CheckNameservers   = "nameservers"
	CheckSubdomains    = "subdomains"
	CheckTunnelRoutes  = "tunnel_routes"
)

// Outcome of a single check
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// CheckResult is the tally of one check
type CheckResult struct {
	Name        string
	Outcome     Outcome
	FatalErrors int
	Warnings    int
}

// Result accumulates the outcome of one doctor run.
type Result struct {
	FatalErrors int
	Warnings    int
	Checks      []CheckResult
}

// OK reports whether the run found neither errors nor warnings
func (r *Result) OK() bool {
	return r.FatalErrors == 0 && r.Warnings == 0
}

// Check returns the result of the named check
func (r *Result) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

func (r *Result) record(c CheckResult) {
	switch {
	case c.Outcome == OutcomeSkipped:
	case c.FatalErrors > 0:
		c.Outcome = OutcomeFailed
	case c.Warnings > 0:
		c.Outcome = OutcomeWarning
	default:
		c.Outcome = OutcomePassed
	}
	r.FatalErrors += c.FatalErrors
	r.Warnings += c.Warnings
	r.Checks = append(r.Checks, c)
}

// Options configures a doctor run
type Options struct {
	Resolver doh.Resolver
	Provider dnsprovider.DNSProvider
	Printer  *console.Printer

	// VerifyRoutes also checks that each host has a tunnel route in the provider.
	VerifyRoutes bool

	// TunnelTarget is the CNAME target of the tunnel, required by VerifyRoutes.
	TunnelTarget string
}

// Doctor runs the checks against one configuration.
type Doctor struct {
	cfg  *config.Config
	opts Options
	out  *console.Printer

	root string // registrable domain of LMS_HOST, or LMS_HOST itself when unparsable
}

// New creates a Doctor. Resolver and Provider are required.
func New(cfg *config.Config, opts Options) (*Doctor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("doctor: configuration is required")
	}
	if opts.Resolver == nil {
		return nil, fmt.Errorf("doctor: a DNS resolver is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("doctor: a DNS provider is required")
	}

	out := opts.Printer
	if out == nil {
		out = console.NewPlainPrinter(nopWriter{})
	}

	root, err := domain.RegistrableDomain(cfg.LMSHost)
	if err != nil {
		root = cfg.LMSHost
	}

	return &Doctor{cfg: cfg, opts: opts, out: out, root: root}, nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// Run performs every check in order and prints a summary.
func (d *Doctor) Run(ctx context.Context) *Result {
	tracer := otel.Tracer("tutor-cloudflared")
	ctx, span := tracer.Start(ctx, "doctor.Run")
	defer span.End()

	span.SetAttributes(
		attribute.String("lms_host", d.cfg.LMSHost),
		attribute.String("root_domain", d.root),
		attribute.String("dns_provider", d.opts.Provider.Name()),
	)

	result := &Result{}
	checks := []struct {
		name string
		fn   func(context.Context) CheckResult
	}{
		{CheckDefaultDomain, d.checkDefaultDomain},
		{CheckSameDomain, d.checkSameDomain},
		{CheckNameservers, d.checkNameservers},
		{CheckSubdomains, d.checkSubdomains},
		{CheckTunnelRoutes, d.checkTunnelRoutes},
	}

	for _, c := range checks {
		cr := c.fn(ctx)
		cr.Name = c.name
		result.record(cr)
		last := result.Checks[len(result.Checks)-1]

		slog.Debug("Doctor check finished", "check", last.Name, "outcome", last.Outcome,
			"fatal_errors", last.FatalErrors, "warnings", last.Warnings)
		status.Send(ctx, status.NewUpdate(levelFor(last.Outcome), fmt.Sprintf("Check %s %s", last.Name, last.Outcome)).
			WithResource("doctor").
			WithAction(last.Name).
			WithMetadata("fatal_errors", last.FatalErrors).
			WithMetadata("warnings", last.Warnings))
	}

	d.summarize(result)

	span.SetAttributes(
		attribute.Int("fatal_errors", result.FatalErrors),
		attribute.Int("warnings", result.Warnings),
	)
	return result
}

func levelFor(o Outcome) status.Level {
	switch o {
	case OutcomeFailed:
		return status.LevelError
	case OutcomeWarning:
		return status.LevelWarning
	case OutcomeSkipped:
		return status.LevelInfo
	default:
		return status.LevelSuccess
	}
}

func (d *Doctor) checkDefaultDomain(ctx context.Context) CheckResult {
	d.out.Title("Checking if it's the default " + domain.DefaultDomain + " domain")

	if domain.IsDefaultDomain(d.cfg.LMSHost) {
		d.out.Error("❌ You are using the default host domain %s, please reset it with:", domain.DefaultDomain)
		d.out.Command("tutor config save --set %s=mydomain.com", config.KeyLMSHost)
		d.out.Error("and then run this check again.")
		return CheckResult{FatalErrors: 1}
	}

	d.out.Info("✅ You are not using the default domain")
	return CheckResult{}
}

func (d *Doctor) checkSameDomain(ctx context.Context) CheckResult {
	d.out.Title("Checking if all hosts share the same root domain")

	// LMS_HOST may be left out of CLOUDFLARED_PUBLIC_HOSTS but still sets the root.
	defined, _ := d.cfg.Hosts()
	values := make([]string, 0, len(defined)+1)
	values = append(values, d.cfg.LMSHost)
	for _, h := range defined {
		values = append(values, h.Value)
	}

	if domain.IsSameDomain(values) {
		d.out.Info("✅ All hosts share the same root domain")
		return CheckResult{}
	}

	conflicted := domain.ConflictedHosts(d.cfg.HostMap(), d.root)
	d.out.Error("❌ Not all hosts share the same root domain, found %d conflicting host(s)", len(conflicted))

	// Keep CLOUDFLARED_PUBLIC_HOSTS order for stable output.
	for _, h := range defined {
		value, ok := conflicted[h.Key]
		if !ok {
			continue
		}
		d.out.Error("%s is %s, which is not under %s, the root domain of %s. You might change it with:",
			h.Key, value, d.root, config.KeyLMSHost)
		d.out.Command("tutor config save --set %s=%s", h.Key, domain.SuggestHost(value, d.root))
	}
	return CheckResult{FatalErrors: 1}
}

func (d *Doctor) checkNameservers(ctx context.Context) CheckResult {
	provider := d.opts.Provider
	d.out.Title(fmt.Sprintf("Checking NS records of %s", d.root))

	if !dnsprovider.NameserverDelegated(ctx, d.opts.Resolver, d.root, provider.NameserverSuffix()) {
		d.out.Error("❌ NS check failed: the nameservers of %s do not seem to be handled by %s.", d.root, provider.Name())
		d.out.Error("Please follow this guide: %s", NameserverSetupURL)
		d.out.Error("If you just changed them, propagation can take a few minutes.")
		return CheckResult{FatalErrors: 1}
	}

	d.out.Info("✅ Nameservers of %s are handled by %s", d.root, provider.Name())
	return CheckResult{}
}

func (d *Doctor) checkSubdomains(ctx context.Context) CheckResult {
	d.out.Title("Checking subdomain levels")

	defined, undefined := d.cfg.Hosts()
	if len(undefined) > 0 {
		d.out.Info("Checks for %s will be skipped because they are not defined", strings.Join(undefined, ", "))
	}

	var res CheckResult
	for _, h := range defined {
		d.out.Info("Checking %s %s", h.Key, h.Value)

		ok, err := domain.SubdomainDepthOK(h.Value)
		if err != nil {
			d.out.Error("❌ The value of %s, '%s', doesn't seem to be a valid domain", h.Key, h.Value)
			res.FatalErrors++
			continue
		}
		if ok {
			continue
		}

		collapsed, err := domain.CollapseToOneSubdomain(h.Value)
		if err != nil {
			res.FatalErrors++
			continue
		}
		d.out.Alert("%s is %s, a second level subdomain. Cloudflare's free Universal SSL certificate only covers one level of subdomains; deeper hosts need an Advanced Certificate.", h.Key, h.Value)
		d.out.Alert("You might change %s to %s by running:", h.Key, collapsed)
		d.out.Command("tutor config save --set %s=%s", h.Key, collapsed)
		res.Warnings++
	}
	return res
}

func (d *Doctor) checkTunnelRoutes(ctx context.Context) CheckResult {
	if !d.opts.VerifyRoutes {
		return CheckResult{Outcome: OutcomeSkipped}
	}

	d.out.Title("Checking tunnel routes")

	if d.opts.TunnelTarget == "" {
		d.out.Alert("%s is not set, run set-tunnel-uuid first. Skipping route verification.", config.KeyTunnelUUID)
		return CheckResult{Warnings: 1}
	}

	defined, _ := d.cfg.Hosts()
	hostnames := make([]string, 0, len(defined))
	for _, h := range defined {
		hostnames = append(hostnames, h.Value)
	}

	missing, err := d.opts.Provider.VerifyTunnelRoutes(ctx, d.root, hostnames, d.opts.TunnelTarget)
	if err != nil {
		d.out.Error("❌ Could not list DNS records of %s: %v", d.root, err)
		return CheckResult{FatalErrors: 1}
	}
	if len(missing) == 0 {
		d.out.Info("✅ All hosts route to %s", d.opts.TunnelTarget)
		return CheckResult{}
	}

	for _, host := range missing {
		d.out.Alert("%s does not route to the tunnel (%s)", host, d.opts.TunnelTarget)
	}
	d.out.Command("tutor-cloudflared route-dns")
	return CheckResult{Warnings: len(missing)}
}

func (d *Doctor) summarize(r *Result) {
	switch {
	case r.FatalErrors > 0:
		d.out.Title(fmt.Sprintf("❌ Checks finished with %d fatal error(s) and %d warning(s)", r.FatalErrors, r.Warnings))
	case r.Warnings > 0:
		d.out.Alert("Checks finished without fatal errors but with %d warning(s)", r.Warnings)
	default:
		d.out.Title("✅ Checks done without any errors or warnings!")
		return
	}
	d.out.Command("Please follow the suggestions in this color above to fix the errors and warnings")
}

// ErrFatal is returned by Result.Err when a run recorded fatal errors
var ErrFatal = errors.New("doctor found fatal errors")

// Err returns ErrFatal, wrapped with the counts, when the run failed.
func (r *Result) Err() error {
	if r.FatalErrors == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d fatal error(s), %d warning(s)", ErrFatal, r.FatalErrors, r.Warnings)
}
