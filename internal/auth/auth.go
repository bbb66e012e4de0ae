// Package auth authenticates API callers with static API keys. Each key maps
// to a client name and the scopes it may use.
package auth

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

const (
	ScopeResolve = "resolve"
	ScopeExecute = "execute"
	ScopeSchema  = "schema"
)

type Identity struct {
	Client string
	Scopes []string
}

func (i Identity) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses "key:client:scope|scope,key2:client2:scope".
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:client:scope|scope", entry)
		}
		key := strings.TrimSpace(parts[0])
		client := strings.TrimSpace(parts[1])
		if key == "" || client == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/client", entry)
		}
		if _, dup := validator.keys[key]; dup {
			return nil, fmt.Errorf("invalid static key entry %q: duplicate key", entry)
		}
		var scopes []string
		for _, scope := range strings.Split(parts[2], "|") {
			scope = strings.ToLower(strings.TrimSpace(scope))
			if scope != "" && !slices.Contains(scopes, scope) {
				scopes = append(scopes, scope)
			}
		}
		if len(scopes) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one scope is required", entry)
		}
		slices.Sort(scopes)
		validator.keys[key] = Identity{Client: client, Scopes: scopes}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
