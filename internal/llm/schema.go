package llm

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a JSON Schema for a structured reply. Declare schemas as
// package-level pointers; the compiled form is built on first use.
type Schema struct {
	// Name is kebab-case. It doubles as the tool or schema name sent to
	// vendors that need one.
	Name        string
	Description string
	Definition  map[string]any

	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	s.once.Do(func() {
		raw, err := json.Marshal(s.Definition)
		if err != nil {
			s.err = errors.Wrapf(err, "marshal schema %q", s.Name)
			return
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			s.err = errors.Wrapf(err, "parse schema %q", s.Name)
			return
		}
		c := jsonschema.NewCompiler()
		url := "mem://" + s.Name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			s.err = errors.Wrapf(err, "add schema %q", s.Name)
			return
		}
		s.compiled, s.err = c.Compile(url)
	})
	return s.compiled, s.err
}

// Check validates raw against the schema.
func (s *Schema) Check(raw json.RawMessage) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return errors.Wrap(err, "reply is not JSON")
	}
	return compiled.Validate(doc)
}

// finish validates content against req.Schema and builds the Response.
// A truncated reply is reported before validation since it will never parse.
func finish(provider string, req Request, content json.RawMessage, model string, stop StopReason, usage Usage) (*Response, error) {
	if stop == StopMaxTokens {
		return nil, &Error{Kind: KindTruncated, Provider: provider, Content: content,
			Err: errors.Newf("reply exceeded %d tokens", req.MaxTokens)}
	}
	if req.Schema != nil {
		if err := req.Schema.Check(content); err != nil {
			return nil, invalid(provider, content, err)
		}
	}
	return &Response{Content: content, Model: model, StopReason: stop, Usage: usage}, nil
}
