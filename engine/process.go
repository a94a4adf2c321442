/*
Copyright © 2024 the uclchemtools authors.
This file is part of uclchemtools.

uclchemtools is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

uclchemtools is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with uclchemtools.  If not, see <http://www.gnu.org/licenses/>.
*/

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/uclchemtools/rates"
)

// Process request operations.
const (
	OpRates       = "rates"
	OpDerivatives = "derivatives"
)

// Request is one line sent to a helper process.
type Request struct {
	Op         string    `json:"op"`
	Density    float64   `json:"density"`
	GasTemp    float64   `json:"gas_temp"`
	DustTemp   float64   `json:"dust_temp"`
	Zeta       float64   `json:"zeta"`
	Radfield   float64   `json:"radfield"`
	Av         float64   `json:"av"`
	Abundances []float64 `json:"abundances"`
	Species    int       `json:"species,omitempty"`
	Reactions  []int     `json:"reactions,omitempty"`
}

// Response is one line received from a helper process.
type Response struct {
	Rates       []float64 `json:"rates,omitempty"`
	Transfer    float64   `json:"transfer"`
	Swap        float64   `json:"swap"`
	BulkLayers  float64   `json:"bulk_layers"`
	Derivatives []float64 `json:"derivatives,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Process is a rate engine backed by a pool of helper processes that wrap
// the chemistry code. Each helper reads one JSON Request per line on
// standard input and writes one JSON Response per line on standard
// output. Helpers are started when first needed; a helper whose pipe
// breaks is restarted.
type Process struct {
	Command string
	Args    []string
	// Env is added to the environment of the helpers.
	Env []string

	// MaxRetries is the number of times a request is retried on a new
	// helper after a transport failure.
	MaxRetries uint64

	Log logrus.FieldLogger

	pool chan *helper
}

// NewProcess returns an engine that runs up to size helpers.
func NewProcess(size int, command string, args ...string) *Process {
	if size < 1 {
		size = 1
	}
	p := &Process{
		Command:    command,
		Args:       args,
		MaxRetries: 3,
		pool:       make(chan *helper, size),
	}
	for i := 0; i < size; i++ {
		p.pool <- nil
	}
	return p
}

func (p *Process) log() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

type helper struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	dec   *json.Decoder
}

func (p *Process) start() (*helper, error) {
	cmd := exec.Command(p.Command, p.Args...)
	cmd.Env = append(os.Environ(), p.Env...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("engine: starting %s: %v", p.Command, err)
	}
	return &helper{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(bufio.NewReader(stdout)),
	}, nil
}

func (h *helper) close() error {
	h.stdin.Close()
	return h.cmd.Wait()
}

func (h *helper) kill() {
	h.cmd.Process.Kill()
	h.cmd.Wait()
}

// roundTrip sends req and waits for the reply. If ctx is done first the
// helper is killed, which closes its pipes and releases the pending read.
func (h *helper) roundTrip(ctx context.Context, req *Request) (*Response, error) {
	type result struct {
		resp *Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		if err := h.enc.Encode(req); err != nil {
			done <- result{err: err}
			return
		}
		resp := new(Response)
		err := h.dec.Decode(resp)
		done <- result{resp: resp, err: err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return r.resp, nil
	case <-ctx.Done():
		h.kill()
		<-done
		return nil, ctx.Err()
	}
}

// call sends req to a free helper.
func (p *Process) call(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var h *helper
	select {
	case h = <-p.pool:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { p.pool <- h }()

	var resp *Response
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.MaxRetries), ctx)
	err := backoff.RetryNotify(
		func() error {
			var err error
			if h == nil {
				if h, err = p.start(); err != nil {
					return err
				}
			}
			resp, err = h.roundTrip(ctx, req)
			if err != nil {
				h.kill()
				h = nil
				return fmt.Errorf("engine: helper %s: %v", p.Command, err)
			}
			return nil
		},
		b,
		func(err error, d time.Duration) {
			p.log().WithField("retry_in", d).Warn(err)
		},
	)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("engine: %s", resp.Error)
	}
	return resp, nil
}

func newRequest(op string, p rates.Params, abundances []float64) *Request {
	return &Request{
		Op:         op,
		Density:    p.Density,
		GasTemp:    p.GasTemp,
		DustTemp:   p.DustTemp,
		Zeta:       p.Zeta,
		Radfield:   p.Radfield,
		Av:         p.Av,
		Abundances: abundances,
	}
}

// SpeciesRates implements rates.Engine.
func (p *Process) SpeciesRates(ctx context.Context, params rates.Params, abundances []float64, species int, reactions []int) (*rates.EngineResult, error) {
	req := newRequest(OpRates, params, abundances)
	req.Species = species
	req.Reactions = reactions
	resp, err := p.call(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Rates) != len(reactions) {
		return nil, fmt.Errorf("engine: helper returned %d rates for %d reactions", len(resp.Rates), len(reactions))
	}
	return &rates.EngineResult{
		Rates:      resp.Rates,
		Transfer:   resp.Transfer,
		Swap:       resp.Swap,
		BulkLayers: resp.BulkLayers,
	}, nil
}

// Derivatives implements rates.DerivativeEngine.
func (p *Process) Derivatives(ctx context.Context, params rates.Params, abundances []float64) ([]float64, error) {
	resp, err := p.call(ctx, newRequest(OpDerivatives, params, abundances))
	if err != nil {
		return nil, err
	}
	return resp.Derivatives, nil
}

// Close stops all helpers, waiting for requests in flight to finish. The
// engine cannot be used after Close.
func (p *Process) Close() error {
	var errs []error
	n := cap(p.pool)
	for i := 0; i < n; i++ {
		h := <-p.pool
		if h == nil {
			continue
		}
		if err := h.close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("engine: closing helpers: %v", errs)
	}
	return nil
}

// Serve runs the helper side of the protocol, answering each request read
// from r with e and writing the response to w. It returns when r is
// exhausted.
func Serve(ctx context.Context, e rates.DerivativeEngine, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		req := new(Request)
		if err := dec.Decode(req); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("engine: reading request: %v", err)
		}
		params := rates.Params{
			Density:  req.Density,
			GasTemp:  req.GasTemp,
			DustTemp: req.DustTemp,
			Zeta:     req.Zeta,
			Radfield: req.Radfield,
			Av:       req.Av,
		}
		resp := new(Response)
		switch req.Op {
		case OpRates:
			res, err := e.SpeciesRates(ctx, params, req.Abundances, req.Species, req.Reactions)
			if err != nil {
				resp.Error = err.Error()
				break
			}
			resp.Rates = res.Rates
			resp.Transfer = res.Transfer
			resp.Swap = res.Swap
			resp.BulkLayers = res.BulkLayers
		case OpDerivatives:
			d, err := e.Derivatives(ctx, params, req.Abundances)
			if err != nil {
				resp.Error = err.Error()
				break
			}
			resp.Derivatives = d
		default:
			resp.Error = fmt.Sprintf("unknown operation %q", req.Op)
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("engine: writing response: %v", err)
		}
	}
}
