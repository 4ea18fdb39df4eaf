package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalidPayload wraps every decode or schema failure returned by Validate.
var ErrInvalidPayload = errors.New("invalid payload")

// Validator validates JSON documents against named JSON Schemas compiled via santhosh-tekuri/jsonschema.
// Schemas are registered once and compiled lazily on first use.
type Validator struct {
	mu      sync.RWMutex
	sources map[string][]byte
	cache   map[string]*jsonschema.Schema
}

// NewValidator returns a validator with no registered schemas.
func NewValidator() *Validator {
	return &Validator{
		sources: make(map[string][]byte),
		cache:   make(map[string]*jsonschema.Schema),
	}
}

// Register stores the schema document under name, dropping any compiled copy.
func (v *Validator) Register(name string, schema []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sources[name] = append([]byte(nil), schema...)
	delete(v.cache, name)
}

// Validate decodes raw and checks it against the named schema.
func (v *Validator) Validate(name string, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: body is empty", ErrInvalidPayload)
	}

	compiled, err := v.getOrCompile(name)
	if err != nil {
		return err
	}

	var document any
	if err := json.Unmarshal(raw, &document); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidPayload, err)
	}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return nil
}

func (v *Validator) getOrCompile(name string) (*jsonschema.Schema, error) {
	v.mu.RLock()
	compiled, ok := v.cache[name]
	v.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// another goroutine may have populated the cache while we were waiting
	if compiled, ok = v.cache[name]; ok {
		return compiled, nil
	}

	source, ok := v.sources[name]
	if !ok {
		return nil, fmt.Errorf("schema %q is not registered", name)
	}

	key := cacheKey(name)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(key, bytes.NewReader(source)); err != nil {
		return nil, fmt.Errorf("register schema %s: %w", key, err)
	}

	newCompiled, err := compiler.Compile(key)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", key, err)
	}

	v.cache[name] = newCompiled
	return newCompiled, nil
}

func cacheKey(name string) string {
	return fmt.Sprintf("memory://schemas/%s.json", name)
}
