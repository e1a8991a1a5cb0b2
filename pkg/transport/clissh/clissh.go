// Package clissh implements the transport interface over plain SSH for
// devices whose configuration lives in a flat file (white-box NOS, Linux
// based appliances). The candidate is staged as a sibling file next to the
// running config, the diff is computed client-side, and commit atomically
// moves the candidate into place followed by an optional apply command.
package clissh

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kylelemons/godebug/diff"
	"golang.org/x/crypto/ssh"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/transport"
)

const (
	defaultPort       = "22"
	defaultConfigPath = "/etc/network/device.conf"
	defaultTimeout    = 30 * time.Second
)

func init() {
	transport.Register("clissh", func() transport.Transport { return &Transport{} })
}

// Transport opens SSH sessions to flat-config devices.
type Transport struct{}

// Open dials SSH with password auth. Recognized target options: "port"
// (default 22), "config_path" (remote running-config file), "apply_cmd"
// (command run after commit to load the new config), "timeout" (seconds).
func (t *Transport) Open(ctx context.Context, target *inventory.Target, c creds.Credentials) (transport.Session, error) {
	config := &ssh.ClientConfig{
		User: c.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.Password),
		},
		// Device management networks rarely distribute host keys;
		// verification is the operator's call via known_hosts tooling.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         transport.CallTimeout(target, defaultTimeout),
	}

	addr := target.MgmtAddr + ":" + target.Option("port", defaultPort)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, transport.NewError(transport.KindConnect, target.Name,
			fmt.Errorf("SSH dial %s: %w", addr, err))
	}

	if err := ctx.Err(); err != nil {
		client.Close()
		return nil, transport.NewError(transport.KindConnect, target.Name, err)
	}

	return &session{
		client:     client,
		device:     target.Name,
		configPath: target.Option("config_path", defaultConfigPath),
		applyCmd:   target.Option("apply_cmd", ""),
	}, nil
}

type session struct {
	client     *ssh.Client
	device     string
	configPath string
	applyCmd   string

	staged bool
	closed bool
}

func (s *session) candidatePath() string {
	return s.configPath + ".candidate"
}

// run executes one remote command, optionally feeding stdin.
func (s *session) run(ctx context.Context, kind transport.Kind, cmd string, stdin string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transport.NewError(kind, s.device, err)
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return "", transport.NewError(kind, s.device, err)
	}
	defer sess.Close()

	if stdin != "" {
		sess.Stdin = strings.NewReader(stdin)
	}
	var out bytes.Buffer
	sess.Stdout = &out
	sess.Stderr = &out

	if err := sess.Run(cmd); err != nil {
		return "", transport.NewError(kind, s.device,
			fmt.Errorf("%s: %w (%s)", cmd, err, strings.TrimSpace(out.String())))
	}
	return out.String(), nil
}

// Stage materializes the desired config on the device as a candidate file.
// Replace mode ships the candidate verbatim; merge mode appends candidate
// lines that are not already present in the running config.
func (s *session) Stage(ctx context.Context, config string, mode transport.LoadMode) error {
	desired := config
	if mode == transport.Merge {
		running, err := s.readRunning(ctx, transport.KindStage)
		if err != nil {
			return err
		}
		desired = mergeLines(running, config)
	}

	writeCmd := fmt.Sprintf("cat > %s", s.candidatePath())
	if _, err := s.run(ctx, transport.KindStage, writeCmd, desired); err != nil {
		return err
	}
	s.staged = true
	return nil
}

func (s *session) readRunning(ctx context.Context, kind transport.Kind) (string, error) {
	// Missing running config reads as empty, not as an error: first-time
	// provisioning starts from a blank device.
	out, err := s.run(ctx, kind, fmt.Sprintf("cat %s 2>/dev/null || true", s.configPath), "")
	if err != nil {
		return "", err
	}
	return out, nil
}

func (s *session) Diff(ctx context.Context) (string, error) {
	running, err := s.readRunning(ctx, transport.KindDiff)
	if err != nil {
		return "", err
	}
	candidate, err := s.run(ctx, transport.KindDiff,
		fmt.Sprintf("cat %s 2>/dev/null || true", s.candidatePath()), "")
	if err != nil {
		return "", err
	}
	if running == candidate {
		return "", nil
	}
	return diff.Diff(running, candidate), nil
}

func (s *session) Commit(ctx context.Context) error {
	mv := fmt.Sprintf("mv %s %s", s.candidatePath(), s.configPath)
	if _, err := s.run(ctx, transport.KindCommit, mv, ""); err != nil {
		return err
	}
	s.staged = false

	if s.applyCmd != "" {
		if _, err := s.run(ctx, transport.KindCommit, s.applyCmd, ""); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) Discard(ctx context.Context) error {
	if !s.staged {
		return nil
	}
	if _, err := s.run(ctx, transport.KindDiscard,
		fmt.Sprintf("rm -f %s", s.candidatePath()), ""); err != nil {
		return err
	}
	s.staged = false
	return nil
}

func (s *session) Facts(ctx context.Context) (transport.Facts, error) {
	out, err := s.run(ctx, transport.KindFacts, "hostname && uname -r", "")
	if err != nil {
		return nil, err
	}

	facts := transport.Facts{"driver": "clissh"}
	lines := strings.SplitN(strings.TrimSpace(out), "\n", 2)
	if len(lines) > 0 {
		facts["hostname"] = strings.TrimSpace(lines[0])
	}
	if len(lines) > 1 {
		facts["kernel"] = strings.TrimSpace(lines[1])
	}
	return facts, nil
}

func (s *session) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.client.Close(); err != nil {
		return transport.NewError(transport.KindClose, s.device, err)
	}
	return nil
}

// mergeLines appends candidate lines missing from running, preserving the
// relative order of both inputs.
func mergeLines(running, candidate string) string {
	present := make(map[string]bool)
	for _, line := range strings.Split(running, "\n") {
		present[strings.TrimRight(line, " \t")] = true
	}

	merged := strings.TrimRight(running, "\n")
	for _, line := range strings.Split(strings.TrimRight(candidate, "\n"), "\n") {
		if !present[strings.TrimRight(line, " \t")] {
			if merged != "" {
				merged += "\n"
			}
			merged += line
		}
	}
	if merged != "" && !strings.HasSuffix(merged, "\n") {
		merged += "\n"
	}
	return merged
}
