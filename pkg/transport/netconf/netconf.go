// Package netconf implements the transport interface over NETCONF using
// scrapligo. Candidate configuration is staged in the candidate datastore
// and the diff is computed client-side by comparing candidate against
// running, since NETCONF itself has no compare operation.
package netconf

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/kylelemons/godebug/diff"
	scraplinetconf "github.com/scrapli/scrapligo/driver/netconf"
	"github.com/scrapli/scrapligo/driver/options"
	scrapliutil "github.com/scrapli/scrapligo/util"

	"github.com/confpush-net/confpush/pkg/creds"
	"github.com/confpush-net/confpush/pkg/inventory"
	"github.com/confpush-net/confpush/pkg/transport"
)

const (
	defaultPort    = 830
	defaultTimeout = 60 * time.Second
)

func init() {
	transport.Register("netconf", func() transport.Transport { return &Transport{} })
}

// Transport opens NETCONF sessions.
type Transport struct{}

// Open dials the device and establishes a NETCONF session. Recognized
// target options: "port" (default 830), "timeout" (seconds, applied to
// every RPC).
func (t *Transport) Open(ctx context.Context, target *inventory.Target, c creds.Credentials) (transport.Session, error) {
	port := defaultPort
	if v := target.Option("port", ""); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, transport.NewError(transport.KindConnect, target.Name,
				fmt.Errorf("invalid port option %q: %w", v, err))
		}
		port = p
	}

	opts := []scrapliutil.Option{
		options.WithAuthNoStrictKey(),
		options.WithNetconfForceSelfClosingTags(),
		options.WithTransportType("standard"),
		options.WithPort(port),
		options.WithAuthUsername(c.Username),
		options.WithAuthPassword(c.Password),
		options.WithTimeoutOps(transport.CallTimeout(target, defaultTimeout)),
	}

	d, err := scraplinetconf.NewDriver(target.MgmtAddr, opts...)
	if err != nil {
		return nil, transport.NewError(transport.KindConnect, target.Name, err)
	}
	if err := d.Open(); err != nil {
		return nil, transport.NewError(transport.KindConnect, target.Name, err)
	}

	if err := ctx.Err(); err != nil {
		_ = d.Close()
		return nil, transport.NewError(transport.KindConnect, target.Name, err)
	}

	return &session{driver: d, device: target.Name}, nil
}

// session wraps one scrapligo NETCONF connection.
type session struct {
	driver *scraplinetconf.Driver
	device string
	closed bool
}

// rpc runs one driver call, folding scrapligo's split error reporting
// (transport error vs. rpc-error in the reply) into a single error.
func rpc(ctx context.Context, kind transport.Kind, device string,
	call func() (result string, failed error, err error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", transport.NewError(kind, device, err)
	}
	result, failed, err := call()
	if err != nil {
		return "", transport.NewError(kind, device, err)
	}
	if failed != nil {
		return "", transport.NewError(kind, device, failed)
	}
	return result, nil
}

func (s *session) Stage(ctx context.Context, config string, mode transport.LoadMode) error {
	payload := fmt.Sprintf("<config>%s</config>", config)
	if mode == transport.Replace {
		payload = fmt.Sprintf(
			`<config xmlns:xc="urn:ietf:params:xml:ns:netconf:base:1.0" xc:operation="replace">%s</config>`,
			config)
	}

	_, err := rpc(ctx, transport.KindStage, s.device, func() (string, error, error) {
		resp, err := s.driver.EditConfig("candidate", payload)
		if err != nil {
			return "", nil, err
		}
		return resp.Result, resp.Failed, nil
	})
	return err
}

func (s *session) Diff(ctx context.Context) (string, error) {
	running, err := s.getConfig(ctx, "running")
	if err != nil {
		return "", err
	}
	candidate, err := s.getConfig(ctx, "candidate")
	if err != nil {
		return "", err
	}
	if running == candidate {
		return "", nil
	}
	return diff.Diff(running, candidate), nil
}

func (s *session) getConfig(ctx context.Context, source string) (string, error) {
	return rpc(ctx, transport.KindDiff, s.device, func() (string, error, error) {
		resp, err := s.driver.GetConfig(source)
		if err != nil {
			return "", nil, err
		}
		return resp.Result, resp.Failed, nil
	})
}

func (s *session) Commit(ctx context.Context) error {
	_, err := rpc(ctx, transport.KindCommit, s.device, func() (string, error, error) {
		resp, err := s.driver.Commit()
		if err != nil {
			return "", nil, err
		}
		return resp.Result, resp.Failed, nil
	})
	return err
}

func (s *session) Discard(ctx context.Context) error {
	_, err := rpc(ctx, transport.KindDiscard, s.device, func() (string, error, error) {
		resp, err := s.driver.Discard()
		if err != nil {
			return "", nil, err
		}
		return resp.Result, resp.Failed, nil
	})
	return err
}

var hostnamePattern = regexp.MustCompile(`<host-?name>([^<]+)</host-?name>`)

// Facts reports a minimal snapshot scraped from the running datastore.
func (s *session) Facts(ctx context.Context) (transport.Facts, error) {
	running, err := rpc(ctx, transport.KindFacts, s.device, func() (string, error, error) {
		resp, err := s.driver.GetConfig("running")
		if err != nil {
			return "", nil, err
		}
		return resp.Result, resp.Failed, nil
	})
	if err != nil {
		return nil, err
	}

	facts := transport.Facts{"driver": "netconf"}
	if m := hostnamePattern.FindStringSubmatch(running); m != nil {
		facts["hostname"] = m[1]
	}
	return facts, nil
}

func (s *session) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.driver.Close(); err != nil {
		return transport.NewError(transport.KindClose, s.device, err)
	}
	return nil
}
