// Package coordinator sends analysis requests to a backend, one at a time.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/audion-app/audion/internal/intake"
	"github.com/audion-app/audion/internal/types"
)

var (
	// ErrInputRejected is returned when a request has no files to send
	ErrInputRejected = errors.New("input rejected")

	// ErrRequestFailed wraps transport and backend failures
	ErrRequestFailed = errors.New("request failed")

	// ErrBusy is returned when a request is already outstanding
	ErrBusy = errors.New("a request is already in flight")
)

// Kind selects the backend operation
type Kind string

const (
	KindAnalyze  Kind = "analyze"
	KindMatch    Kind = "match"
	KindFeatures Kind = "features"
)

// Request is one submission to the backend.
// Analyze and features use the first of Files; match sends Files as test files
// against References.
type Request struct {
	Kind       Kind
	Files      []intake.UploadedFile
	References []intake.UploadedFile
}

// validate reports whether the request carries the files its kind needs
func (r Request) validate() error {
	switch r.Kind {
	case KindAnalyze, KindFeatures:
		if len(r.Files) == 0 {
			return fmt.Errorf("%w: no file selected", ErrInputRejected)
		}
	case KindMatch:
		if len(r.Files) == 0 {
			return fmt.Errorf("%w: no test files selected", ErrInputRejected)
		}
		if len(r.References) == 0 {
			return fmt.Errorf("%w: no reference files selected", ErrInputRejected)
		}
	default:
		return fmt.Errorf("%w: unknown request kind %q", ErrInputRejected, r.Kind)
	}
	return nil
}

// Result is the outcome of a successful request. Exactly one field is set,
// matching the request kind.
type Result struct {
	Kind     Kind
	Analysis *types.AnalysisResult
	Matches  []types.MatchResult
	Features json.RawMessage
}

// Backend performs requests. Implementations may block for as long as the
// work takes and must honor ctx cancellation.
type Backend interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// normalize clamps bounded values and checks the result has the request's shape
func normalize(req Request, res *Result) (*Result, error) {
	res.Kind = req.Kind
	switch req.Kind {
	case KindAnalyze:
		if res.Analysis == nil {
			return nil, errors.New("backend returned no analysis")
		}
		a := res.Analysis.Normalize()
		res.Analysis = &a
	case KindMatch:
		if len(res.Matches) != len(req.Files) {
			return nil, errors.New("backend returned a result count that does not match the test files")
		}
		refs := make(map[string]bool, len(req.References))
		for _, f := range req.References {
			refs[f.Name] = true
		}
		matches := make([]types.MatchResult, len(res.Matches))
		for i, m := range res.Matches {
			if m.TestFile != req.Files[i].Name {
				return nil, fmt.Errorf("backend returned result %d for %q, expected %q", i+1, m.TestFile, req.Files[i].Name)
			}
			if !refs[m.MatchedReferenceFile] {
				return nil, fmt.Errorf("backend matched %q to unknown reference %q", m.TestFile, m.MatchedReferenceFile)
			}
			matches[i] = m.Normalize()
		}
		res.Matches = matches
	case KindFeatures:
		if len(res.Features) == 0 {
			return nil, errors.New("backend returned no features")
		}
	}
	return res, nil
}
