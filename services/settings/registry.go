package settings

import (
	"context"
)

// Action selects which submit control was present in the payload. Anything
// other than save or reset is a group-specific custom action (import,
// export, truncate) handled outside the per-field loop.
type Action string

const (
	ActionSave  Action = "save"
	ActionReset Action = "reset"
)

// Group is one named collection of related fields persisted as a single
// option document
type Group struct {
	Name       string
	Title      string
	OptionName string
	Fields     []Field

	// PostValidate adjusts the validated document with access to the
	// currently stored one (preserved fields, unchecked-toggle backfill)
	PostValidate func(validated, stored map[string]interface{}) map[string]interface{}

	// CustomActions names the submit controls this group accepts besides
	// save and reset
	CustomActions []string
}

// Registry maps declarative group/field descriptions to a validation
// pipeline over the persisted option store
type Registry struct {
	store  *Store
	groups []Group
}

// NewRegistry creates a registry with the built-in settings groups
func NewRegistry(store *Store) *Registry {
	return &Registry{
		store:  store,
		groups: defaultGroups(),
	}
}

// Groups returns all registered groups in declaration order
func (r *Registry) Groups() []Group {
	return r.groups
}

// Group resolves a submitted group identifier against the known groups,
// matching either the short name or the full option name
func (r *Registry) Group(name string) (*Group, bool) {
	for i := range r.groups {
		if r.groups[i].Name == name || r.groups[i].OptionName == name {
			return &r.groups[i], true
		}
	}
	return nil, false
}

// Defaults compiles the declared default value set for a group
func (r *Registry) Defaults(g *Group) map[string]interface{} {
	defaults := make(map[string]interface{}, len(g.Fields))
	for _, f := range g.Fields {
		if f.SkipSaving {
			continue
		}
		defaults[f.Key] = f.Default
	}
	return defaults
}

// ValidateInput runs the per-field save loop: the field's custom validator
// when declared, else its kind validator, with the default substituted when
// the submitted value is absent. Returns the validated document and the
// ordered set of touched field keys.
func (r *Registry) ValidateInput(g *Group, input map[string]interface{}) (map[string]interface{}, []string) {
	validated := make(map[string]interface{}, len(input))
	for k, v := range input {
		validated[k] = v
	}

	touched := make([]string, 0, len(g.Fields))

	for _, f := range g.Fields {
		if f.SkipSaving {
			continue
		}

		_, isCustom := f.Kind.(Custom)

		if f.ValidateFunc != nil {
			if isCustom {
				// custom fields validate against the whole document
				if out, ok := f.ValidateFunc(validated, f).(map[string]interface{}); ok {
					validated = out
				}
			} else if value, present := validated[f.Key]; present {
				validated[f.Key] = unslash(f.ValidateFunc(value, f))
			} else {
				validated[f.Key] = f.Default
			}
		} else if value, present := validated[f.Key]; present {
			validated[f.Key] = unslash(f.Kind.Validate(value, f))
		} else {
			validated[f.Key] = f.Default
		}

		touched = append(touched, f.Key)
	}

	return validated, touched
}

// Reset replaces the value set with compiled defaults, then applies any
// declared reset callbacks so computed fields can rebuild derived defaults
func (r *Registry) Reset(g *Group) map[string]interface{} {
	values := r.Defaults(g)

	for _, f := range g.Fields {
		if f.ResetFunc == nil {
			continue
		}

		if _, isCustom := f.Kind.(Custom); isCustom {
			if out, ok := f.ResetFunc(values, f).(map[string]interface{}); ok {
				values = out
			}
		} else {
			values[f.Key] = f.ResetFunc(values[f.Key], f)
		}
	}

	return values
}

// Validate is the full pipeline for one submission:
// authorization gate, group resolution, action dispatch. An unauthorized
// caller or an unresolved group degrades to a pass-through of the raw
// input, never an error. Custom actions leave the stored document
// unchanged; their side effects run elsewhere.
func (r *Registry) Validate(ctx context.Context, group string, action Action, input map[string]interface{}, authorized bool) (map[string]interface{}, []string) {
	if !authorized {
		return input, nil
	}

	g, ok := r.Group(group)
	if !ok {
		return input, nil
	}

	switch action {
	case ActionSave:
		validated, touched := r.ValidateInput(g, input)
		if g.PostValidate != nil {
			validated = g.PostValidate(validated, r.storedOrNil(ctx, g))
		}
		return validated, touched

	case ActionReset:
		return r.Reset(g), nil

	default:
		if stored := r.storedOrNil(ctx, g); stored != nil {
			return stored, nil
		}
		return input, nil
	}
}

func (r *Registry) storedOrNil(ctx context.Context, g *Group) map[string]interface{} {
	if r.store == nil {
		return nil
	}
	stored, err := r.store.Get(ctx, g.OptionName)
	if err != nil {
		return nil
	}
	return stored
}

// Values returns the stored document for a group merged over its defaults,
// so callers always see a complete value set
func (r *Registry) Values(ctx context.Context, name string) (map[string]interface{}, error) {
	g, ok := r.Group(name)
	if !ok {
		return nil, ErrUnknownGroup
	}

	values := r.Defaults(g)
	if r.store == nil {
		return values, nil
	}

	stored, err := r.store.Get(ctx, g.OptionName)
	if err != nil {
		return nil, err
	}
	for k, v := range stored {
		values[k] = v
	}

	return values, nil
}

// Save persists a validated document as the group's option
func (r *Registry) Save(ctx context.Context, g *Group, doc map[string]interface{}) error {
	return r.store.Save(ctx, g.OptionName, doc)
}
