// Package document normalizes the OpenAPI payload produced by the artifact.
//
// Normalization only touches the top-level servers list: it guarantees a
// local development entry and, when the service identity is fully known,
// appends the inferred production entry. Output is deterministic, so
// processing an already-normalized document returns identical bytes.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/pithecene-io/workers-openapi/metrics"
	"github.com/pithecene-io/workers-openapi/types"
)

const (
	// DefaultLocalURL is the local development server entry.
	DefaultLocalURL = "http://localhost:8787"
	// DefaultDomainSuffix is the public domain production URLs are built on.
	DefaultDomainSuffix = "workers.dev"

	localDescription      = "local dev"
	productionDescription = "production"
)

// loopbackMarkers identify a server URL as local.
var loopbackMarkers = []string{"localhost", "127.0.0.1", "[::1]"}

var (
	// ErrInvalidUTF8 indicates the payload is not UTF-8 text.
	ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")
	// ErrNotObject indicates the payload's top-level JSON value is not an object.
	ErrNotObject = errors.New("document is not a JSON object")
)

// Options control server normalization.
type Options struct {
	// LocalURL replaces DefaultLocalURL when set.
	LocalURL string
	// DomainSuffix replaces DefaultDomainSuffix when set.
	DomainSuffix string
	// Collector records appended servers. May be nil.
	Collector *metrics.Collector
}

func (o Options) localURL() string {
	if o.LocalURL == "" {
		return DefaultLocalURL
	}
	return o.LocalURL
}

func (o Options) domainSuffix() string {
	if o.DomainSuffix == "" {
		return DefaultDomainSuffix
	}
	return o.DomainSuffix
}

// ProductionURL derives the public URL for a service on an account.
func ProductionURL(service, account, suffix string) string {
	return fmt.Sprintf("https://%s.%s.%s", service, account, suffix)
}

// IsLocal reports whether url points at a loopback host.
func IsLocal(url string) bool {
	for _, marker := range loopbackMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// Process parses payload, normalizes its servers and re-serializes it.
// Members other than servers pass through as decoded, so schema keywords
// and numeric literals are never reinterpreted. Errors are classified as
// types.ErrDocument.
func Process(payload []byte, id types.ServiceIdentity, opts Options) ([]byte, error) {
	if !utf8.Valid(payload) {
		return nil, types.NewStageError(types.ErrDocument, "document", ErrInvalidUTF8)
	}

	tree, err := decodeObject(payload)
	if err != nil {
		return nil, types.NewStageError(types.ErrDocument, "document", fmt.Errorf("failed to parse document: %w", err))
	}

	servers, err := serversOf(tree)
	if err != nil {
		return nil, types.NewStageError(types.ErrDocument, "document", err)
	}

	servers, appended := Normalize(servers, id, opts)
	opts.Collector.AddServersAppended(appended)

	if tree["servers"], err = toTree(servers); err != nil {
		return nil, types.NewStageError(types.ErrDocument, "document", err)
	}

	out, err := Encode(tree)
	if err != nil {
		return nil, types.NewStageError(types.ErrDocument, "document", err)
	}
	return out, nil
}

func decodeObject(payload []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after document")
	}

	tree, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return tree, nil
}

// serversOf types the servers member. Absent or null means none.
func serversOf(tree map[string]any) (openapi3.Servers, error) {
	raw, ok := tree["servers"]
	if !ok || raw == nil {
		return nil, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to read servers: %w", err)
	}
	var servers openapi3.Servers
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, fmt.Errorf("invalid servers: %w", err)
	}
	return servers, nil
}

// toTree converts servers back into generic JSON values.
func toTree(servers openapi3.Servers) (any, error) {
	data, err := json.Marshal(servers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode servers: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to encode servers: %w", err)
	}
	return v, nil
}

// Normalize returns servers with the local entry and, when the identity is
// complete, the production entry appended, plus how many were appended.
func Normalize(servers openapi3.Servers, id types.ServiceIdentity, opts Options) (openapi3.Servers, int) {
	appended := 0

	hasLocal, hasRemote := false, false
	for _, s := range servers {
		if s == nil {
			continue
		}
		if IsLocal(s.URL) {
			hasLocal = true
		} else {
			hasRemote = true
		}
	}

	if !hasLocal {
		servers = append(servers, &openapi3.Server{
			URL:         opts.localURL(),
			Description: localDescription,
		})
		appended++
	}

	if id.ProductionKnown() && !hasRemote {
		servers = append(servers, &openapi3.Server{
			URL:         ProductionURL(*id.ServiceName, *id.AccountID, opts.domainSuffix()),
			Description: productionDescription,
		})
		appended++
	}

	return servers, appended
}

// Encode renders a decoded document as 2-space indented JSON with sorted
// keys, no HTML escaping, and exactly one trailing newline. Numbers decoded
// as json.Number are written back verbatim.
func Encode(tree any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tree); err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return buf.Bytes(), nil
}
