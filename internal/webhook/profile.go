package webhook

import (
	"context"
	"fmt"
	"strings"
)

// ProcessEverything accepts every record.
type ProcessEverything struct{}

// ShouldProcess implements Profile.
func (ProcessEverything) ShouldProcess(context.Context, *Record) (bool, error) {
	return true, nil
}

// HeaderMatch accepts records whose stored Header equals one of Values
// (case-insensitive), e.g. an event-type header.
type HeaderMatch struct {
	Header string
	Values []string
}

// NewHeaderMatch validates and builds a HeaderMatch profile.
func NewHeaderMatch(header string, values []string) (*HeaderMatch, error) {
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("header is required")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("at least one value is required")
	}
	return &HeaderMatch{Header: header, Values: values}, nil
}

// ShouldProcess implements Profile.
func (p *HeaderMatch) ShouldProcess(_ context.Context, rec *Record) (bool, error) {
	got := rec.HeaderValue(p.Header)
	if got == "" {
		return false, nil
	}
	for _, v := range p.Values {
		if strings.EqualFold(got, v) {
			return true, nil
		}
	}
	return false, nil
}
