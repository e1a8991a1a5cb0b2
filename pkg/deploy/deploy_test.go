package deploy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/transport"
)

// fakeSession records the order of every transport call so tests can assert
// sequencing guarantees, not just outcomes.
type fakeSession struct {
	calls []string

	diff       string
	facts      transport.Facts
	stageErr   error
	diffErr    error
	commitErr  error
	discardErr error
	factsErr   error
	closeErr   error
}

func (s *fakeSession) Stage(_ context.Context, _ string, _ transport.LoadMode) error {
	s.calls = append(s.calls, "stage")
	return s.stageErr
}

func (s *fakeSession) Diff(context.Context) (string, error) {
	s.calls = append(s.calls, "diff")
	return s.diff, s.diffErr
}

func (s *fakeSession) Commit(context.Context) error {
	s.calls = append(s.calls, "commit")
	return s.commitErr
}

func (s *fakeSession) Discard(context.Context) error {
	s.calls = append(s.calls, "discard")
	return s.discardErr
}

func (s *fakeSession) Facts(context.Context) (transport.Facts, error) {
	s.calls = append(s.calls, "facts")
	return s.facts, s.factsErr
}

func (s *fakeSession) Close(context.Context) error {
	s.calls = append(s.calls, "close")
	return s.closeErr
}

func (s *fakeSession) count(call string) int {
	n := 0
	for _, c := range s.calls {
		if c == call {
			n++
		}
	}
	return n
}

type fakeTransport struct {
	sess    *fakeSession
	openErr error
	opens   int
}

func (t *fakeTransport) Open(context.Context, *inventory.Target, creds.Credentials) (transport.Session, error) {
	t.opens++
	if t.openErr != nil {
		return nil, t.openErr
	}
	return t.sess, nil
}

func newDeployer(tr transport.Transport) *Deployer {
	return NewWithTransport(creds.NewResolver(nil, creds.ResolverOptions{}), tr)
}

func request(dryRun, commit bool) Request {
	return Request{
		Target:          &inventory.Target{Name: "leaf1-ny", MgmtAddr: "10.0.0.11", Driver: "fake"},
		CandidateConfig: "hostname leaf1-ny\n",
		DryRun:          dryRun,
		CommitOnSuccess: commit,
	}
}

func TestDeploy_EmptyDiffNeverCommits(t *testing.T) {
	// Even a live request with commit enabled must not commit when the
	// device reports no pending change.
	sess := &fakeSession{diff: ""}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != NoOpNoDiff {
		t.Errorf("status = %q, want %q", result.Status, NoOpNoDiff)
	}
	if sess.count("commit") != 0 {
		t.Errorf("commit called %d times, want 0", sess.count("commit"))
	}
	if sess.count("discard") != 1 {
		t.Errorf("discard called %d times, want 1 (clears no-op pending state)", sess.count("discard"))
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want 1", sess.count("close"))
	}
}

func TestDeploy_DryRunWinsOverCommit(t *testing.T) {
	sess := &fakeSession{diff: "+vlan 10"}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(true, true))

	if result.Status != DryRunDiscarded {
		t.Errorf("status = %q, want %q", result.Status, DryRunDiscarded)
	}
	if result.DiffText != "+vlan 10" {
		t.Errorf("DiffText = %q, want diff preserved", result.DiffText)
	}
	if sess.count("commit") != 0 {
		t.Error("dry run must never commit, even with commit_on_success set")
	}
	if sess.count("discard") != 1 {
		t.Errorf("discard called %d times, want 1", sess.count("discard"))
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want 1", sess.count("close"))
	}
}

func TestDeploy_CommitDisabledDiscards(t *testing.T) {
	sess := &fakeSession{diff: "+vlan 10"}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, false))

	if result.Status != Discarded {
		t.Errorf("status = %q, want %q", result.Status, Discarded)
	}
	if result.DiffText == "" {
		t.Error("discarded result should carry the diff")
	}
	if sess.count("commit") != 0 {
		t.Error("commit must not be called when commit_on_success is false")
	}
}

func TestDeploy_CommitSuccess(t *testing.T) {
	sess := &fakeSession{diff: "+vlan 10", facts: transport.Facts{"hostname": "leaf1-ny"}}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Committed {
		t.Fatalf("status = %q, want %q (err: %v)", result.Status, Committed, result.Err)
	}
	if sess.count("commit") != 1 {
		t.Errorf("commit called %d times, want exactly 1", sess.count("commit"))
	}
	if result.Facts["hostname"] != "leaf1-ny" {
		t.Errorf("Facts = %v, want post-commit snapshot", result.Facts)
	}

	// strict ordering: stage before diff before commit before close
	want := []string{"stage", "diff", "commit", "facts", "close"}
	if len(sess.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", sess.calls, want)
	}
	for i, call := range want {
		if sess.calls[i] != call {
			t.Fatalf("calls = %v, want %v", sess.calls, want)
		}
	}
}

func TestDeploy_CommitFailure(t *testing.T) {
	commitErr := transport.NewError(transport.KindCommit, "leaf1-ny", errors.New("merge failed"))
	sess := &fakeSession{diff: "+vlan 10", commitErr: commitErr}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Failed {
		t.Errorf("status = %q, want %q", result.Status, Failed)
	}
	if transport.KindOf(result.Err) != transport.KindCommit {
		t.Errorf("error kind = %q, want commit stage identified", transport.KindOf(result.Err))
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want exactly 1", sess.count("close"))
	}
	if sess.count("discard") != 0 {
		t.Error("failed commit must not trigger a discard; the driver owns cleanup")
	}
}

func TestDeploy_CommitFailureWithAutoRollback(t *testing.T) {
	commitErr := transport.NewError(transport.KindCommit, "leaf1-ny", transport.ErrAutoRollback)
	sess := &fakeSession{diff: "+vlan 10", commitErr: commitErr}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != RolledBack {
		t.Errorf("status = %q, want %q on explicit rollback signal", result.Status, RolledBack)
	}
	if result.Err == nil {
		t.Error("rolled-back result should still carry the commit error")
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want 1", sess.count("close"))
	}
}

func TestDeploy_OpenFailure(t *testing.T) {
	openErr := transport.NewError(transport.KindConnect, "leaf1-ny", errors.New("connection refused"))
	sess := &fakeSession{}
	d := newDeployer(&fakeTransport{sess: sess, openErr: openErr})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Failed {
		t.Errorf("status = %q, want %q", result.Status, Failed)
	}
	if transport.KindOf(result.Err) != transport.KindConnect {
		t.Errorf("error kind = %q, want connect", transport.KindOf(result.Err))
	}
	if len(sess.calls) != 0 {
		t.Errorf("no session existed, yet calls = %v", sess.calls)
	}
}

func TestDeploy_StageFailure(t *testing.T) {
	stageErr := transport.NewError(transport.KindStage, "leaf1-ny", errors.New("invalid syntax"))
	sess := &fakeSession{stageErr: stageErr}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Failed {
		t.Errorf("status = %q, want %q", result.Status, Failed)
	}
	if transport.KindOf(result.Err) != transport.KindStage {
		t.Errorf("error kind = %q, want stage", transport.KindOf(result.Err))
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want 1", sess.count("close"))
	}
}

func TestDeploy_DiffFailureDiscardsAndCloses(t *testing.T) {
	sess := &fakeSession{diffErr: errors.New("unexpected driver panic")}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Failed {
		t.Errorf("status = %q, want %q", result.Status, Failed)
	}
	if sess.count("discard") != 1 {
		t.Errorf("discard called %d times, want 1 (best-effort cleanup)", sess.count("discard"))
	}
	if sess.count("close") != 1 {
		t.Errorf("close called %d times, want 1", sess.count("close"))
	}
}

func TestDeploy_DiscardFailureNeverChangesStatus(t *testing.T) {
	sess := &fakeSession{
		diff:       "+vlan 10",
		discardErr: transport.NewError(transport.KindDiscard, "leaf1-ny", errors.New("session busy")),
	}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(true, false))

	if result.Status != DryRunDiscarded {
		t.Errorf("status = %q, want %q despite discard failure", result.Status, DryRunDiscarded)
	}
	if result.Err != nil {
		t.Errorf("discard failure must not surface as result error, got %v", result.Err)
	}
}

func TestDeploy_CloseFailureNeverChangesStatus(t *testing.T) {
	sess := &fakeSession{
		diff:     "+vlan 10",
		closeErr: transport.NewError(transport.KindClose, "leaf1-ny", errors.New("already closed")),
	}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Committed {
		t.Errorf("status = %q, want %q despite close failure", result.Status, Committed)
	}
}

func TestDeploy_FactsFailureNonFatal(t *testing.T) {
	sess := &fakeSession{diff: "+vlan 10", factsErr: errors.New("show version timed out")}
	d := newDeployer(&fakeTransport{sess: sess})

	result := d.Deploy(context.Background(), request(false, true))

	if result.Status != Committed {
		t.Errorf("status = %q, want %q; verification is best-effort", result.Status, Committed)
	}
	if result.Facts != nil {
		t.Errorf("Facts = %v, want nil after failed snapshot", result.Facts)
	}
}

func TestDeploy_EmptyCandidateNeverConnects(t *testing.T) {
	tr := &fakeTransport{sess: &fakeSession{}}
	d := newDeployer(tr)

	req := request(false, true)
	req.CandidateConfig = "   \n"
	result := d.Deploy(context.Background(), req)

	if result.Status != NoOpNoDiff {
		t.Errorf("status = %q, want %q", result.Status, NoOpNoDiff)
	}
	if tr.opens != 0 {
		t.Errorf("open called %d times, want 0", tr.opens)
	}
}

func TestDeploy_InvalidTargetFailsBeforeConnect(t *testing.T) {
	tr := &fakeTransport{sess: &fakeSession{}}
	d := newDeployer(tr)

	req := request(false, true)
	req.Target = &inventory.Target{Name: "leaf1-ny"} // no address, no driver
	result := d.Deploy(context.Background(), req)

	if result.Status != Failed {
		t.Errorf("status = %q, want %q", result.Status, Failed)
	}
	if !strings.Contains(result.Err.Error(), "validation failed") {
		t.Errorf("Err = %v, want validation failure", result.Err)
	}
	if tr.opens != 0 {
		t.Errorf("open called %d times, want 0", tr.opens)
	}
}

// TestDeploy_DecisionTable exercises all four flag combinations against
// both empty and non-empty diffs.
func TestDeploy_DecisionTable(t *testing.T) {
	tests := []struct {
		name       string
		dryRun     bool
		commit     bool
		diff       string
		wantStatus Status
		wantCommit int
	}{
		{"dry+commit empty", true, true, "", NoOpNoDiff, 0},
		{"dry+commit change", true, true, "+vlan 10", DryRunDiscarded, 0},
		{"dry empty", true, false, "", NoOpNoDiff, 0},
		{"dry change", true, false, "+vlan 10", DryRunDiscarded, 0},
		{"live+commit empty", false, true, "", NoOpNoDiff, 0},
		{"live+commit change", false, true, "+vlan 10", Committed, 1},
		{"live empty", false, false, "", NoOpNoDiff, 0},
		{"live change", false, false, "+vlan 10", Discarded, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := &fakeSession{diff: tt.diff}
			d := newDeployer(&fakeTransport{sess: sess})

			result := d.Deploy(context.Background(), request(tt.dryRun, tt.commit))

			if result.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", result.Status, tt.wantStatus)
			}
			if got := sess.count("commit"); got != tt.wantCommit {
				t.Errorf("commit calls = %d, want %d", got, tt.wantCommit)
			}
			if got := sess.count("close"); got != 1 {
				t.Errorf("close calls = %d, want exactly 1", got)
			}
		})
	}
}
