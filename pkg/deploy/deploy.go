// Package deploy runs one configuration deployment attempt against one
// device: open a transport session, stage the candidate, diff it against
// running state, then commit or discard according to the request flags.
//
// The attempt is a one-shot state machine:
//
//	Idle → Connecting → Staged → Diffed → {Committing | Discarding} → Closed
//
// with Failed absorbing from any non-terminal state. Once a session is open
// it is closed exactly once on every exit path. A Deployer executes exactly
// one attempt per Deploy call and holds no state between calls, so
// independent targets may be deployed concurrently; callers that may race
// on the same target serialize through a Locker.
package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/intent"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/transport"
	"github.com/confpush-net/confpush/pkg/util"
)

// Status is the terminal outcome of one deployment attempt.
type Status string

const (
	// Committed: a non-empty diff was committed to the device.
	Committed Status = "committed"
	// Discarded: changes were staged but intentionally not committed.
	Discarded Status = "discarded"
	// DryRunDiscarded: dry-run preview; diff computed, candidate discarded.
	DryRunDiscarded Status = "dry_run_discarded"
	// NoOpNoDiff: the candidate produced no pending change.
	NoOpNoDiff Status = "no_op_no_diff"
	// RolledBack: commit failed and the driver explicitly signaled a
	// successful device-side rollback.
	RolledBack Status = "rolled_back"
	// Failed: the attempt terminated on an error.
	Failed Status = "failed"
)

// Request describes one deployment attempt. CandidateConfig must be
// non-empty; a blank candidate short-circuits to NoOpNoDiff before any
// connection is made.
type Request struct {
	Target          *inventory.Target
	CandidateConfig string
	DryRun          bool
	Replace         bool
	CommitOnSuccess bool
}

// Result is produced exactly once per Deploy call.
type Result struct {
	Status   Status
	DiffText string
	Err      error
	Facts    transport.Facts
	Duration time.Duration
}

// Deployer executes deployment attempts. OpenTransport is swappable for
// tests; it defaults to the driver registry.
type Deployer struct {
	resolver      *creds.Resolver
	openTransport func(driver string) (transport.Transport, error)
}

// New creates a Deployer using the given credential resolver and the
// registered transport drivers.
func New(resolver *creds.Resolver) *Deployer {
	return &Deployer{
		resolver:      resolver,
		openTransport: transport.New,
	}
}

// NewWithTransport creates a Deployer bound to a fixed transport,
// bypassing the driver registry.
func NewWithTransport(resolver *creds.Resolver, tr transport.Transport) *Deployer {
	return &Deployer{
		resolver:      resolver,
		openTransport: func(string) (transport.Transport, error) { return tr, nil },
	}
}

// Deploy runs one attempt to a terminal status. It never panics on adapter
// errors and never leaks a session: every path that reaches Connecting
// closes the session exactly once before returning.
func (d *Deployer) Deploy(ctx context.Context, req Request) Result {
	start := time.Now()
	result := d.run(ctx, req)
	result.Duration = time.Since(start)
	return result
}

func (d *Deployer) run(ctx context.Context, req Request) Result {
	log := util.WithDevice(req.Target.Name)

	if err := req.Target.Validate(); err != nil {
		return Result{Status: Failed, Err: err}
	}
	if strings.TrimSpace(req.CandidateConfig) == "" {
		log.Info("empty candidate configuration, nothing to deploy")
		return Result{Status: NoOpNoDiff}
	}

	c := d.resolver.Resolve(req.Target)
	log.Debugf("resolved credentials: %s", c)
	log.Debugf("candidate preview:\n%s", intent.Preview(req.CandidateConfig, 10))

	tr, err := d.openTransport(req.Target.Driver)
	if err != nil {
		return Result{Status: Failed, Err: err}
	}

	// Idle → Connecting. On failure no session exists, nothing to close.
	log.WithField("addr", req.Target.MgmtAddr).Info("connecting")
	sess, err := tr.Open(ctx, req.Target, c)
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("connecting to %s: %w", req.Target.MgmtAddr, err)}
	}

	// Single close discipline: every path below routes through this.
	closed := false
	closeSession := func() {
		if closed {
			return
		}
		closed = true
		if cerr := sess.Close(ctx); cerr != nil {
			log.Warnf("closing session: %v", cerr)
		}
	}
	defer closeSession()

	discardAndLog := func() {
		if derr := sess.Discard(ctx); derr != nil {
			log.Warnf("discarding candidate: %v", derr)
		}
	}

	// Connecting → Staged
	mode := transport.Merge
	if req.Replace {
		mode = transport.Replace
		log.Warn("replace mode: entire running configuration will be superseded")
	}
	log.WithField("mode", string(mode)).Info("staging candidate configuration")
	if err := sess.Stage(ctx, req.CandidateConfig, mode); err != nil {
		return Result{Status: Failed, Err: err}
	}

	// Staged → Diffed
	diff, err := sess.Diff(ctx)
	if err != nil {
		// Diff errors are outside the decision table: abandon the
		// candidate before reporting failure.
		discardAndLog()
		return Result{Status: Failed, Err: err}
	}

	if diff == "" {
		// Some transports retain a no-op pending state; clear it.
		log.Info("no configuration changes detected")
		discardAndLog()
		return Result{Status: NoOpNoDiff}
	}
	log.Debugf("configuration diff:\n%s", diff)

	// Diffed → decision. Dry-run always wins over commit-on-success.
	switch {
	case req.DryRun:
		log.Info("dry run: discarding staged changes")
		discardAndLog()
		return Result{Status: DryRunDiscarded, DiffText: diff}
	case !req.CommitOnSuccess:
		log.Info("commit disabled: discarding staged changes")
		discardAndLog()
		return Result{Status: Discarded, DiffText: diff}
	}

	// Diffed → Committing
	log.Info("committing configuration")
	if err := sess.Commit(ctx); err != nil {
		if transport.IsAutoRollback(err) {
			log.Warnf("commit failed, device rolled back: %v", err)
			return Result{Status: RolledBack, DiffText: diff, Err: err}
		}
		// The driver contract owns any candidate cleanup after a failed
		// commit; no re-stage here, just report with the cause attached.
		return Result{Status: Failed, DiffText: diff, Err: err}
	}
	// Committing → Closed, with best-effort verification.
	facts := d.verify(ctx, sess, log)
	return Result{Status: Committed, DiffText: diff, Facts: facts}
}

// verify fetches a post-commit fact snapshot. Failures are warnings only.
func (d *Deployer) verify(ctx context.Context, sess transport.Session, log *logrus.Entry) transport.Facts {
	facts, err := sess.Facts(ctx)
	if err != nil {
		log.Warnf("post-commit verification unavailable: %v", err)
		return nil
	}
	if hostname, ok := facts["hostname"]; ok {
		log.Infof("device %s is running the new configuration", hostname)
	}
	return facts
}
