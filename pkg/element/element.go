// Package element resolves symbolic element descriptions into live UI
// element handles. It is a collaborator of the graph engine, consumed only
// inside caller-supplied actions and conditions; the engine itself never
// touches it.
//
// A locator is described either structurally (tag, id, name, classes,
// attributes, index) or by an XPath expression — exactly one of the two,
// never both, never neither. Structural descriptions compile to a CSS
// selector.
package element

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// DefaultWaitTimeout bounds how long Resolve polls for an element to appear.
const DefaultWaitTimeout = 10 * time.Second

// DefaultPollInterval is the delay between polling attempts.
const DefaultPollInterval = 100 * time.Millisecond

// By identifies the query mechanism handed to the Finder.
type By string

const (
	ByCSS   By = "css"
	ByXPath By = "xpath"
)

// Handle is a live element returned by the caller's Finder implementation.
type Handle interface {
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
	Displayed(ctx context.Context) (bool, error)
}

// Finder is the narrow boundary the caller's automation session must expose
// for element resolution. FindAll returns every element matching the query,
// in document order; it returns an empty slice, not an error, when nothing
// matches yet.
type Finder interface {
	FindAll(ctx context.Context, by By, value string) ([]Handle, error)
}

// Spec is the symbolic description of an element.
type Spec struct {
	Tag     string
	ID      string
	Name    string
	Classes []string
	Attrs   map[string]string
	Index   *int // selects among multiple matches; nil means the match must be unique
	XPath   string
}

// Locator is a validated element description ready to resolve.
type Locator struct {
	spec     Spec
	selector string
	timeout  time.Duration
	interval time.Duration
}

// Option configures a Locator.
type Option func(*Locator)

// WithWaitTimeout overrides the resolution wait timeout.
func WithWaitTimeout(d time.Duration) Option {
	return func(l *Locator) { l.timeout = d }
}

// WithPollInterval overrides the polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *Locator) { l.interval = d }
}

// New validates a Spec and compiles it into a Locator.
//
// Validation rules: either the XPath or the structural attributes may be
// given, not both, and at least one of them must be given. Tag together
// with XPath is rejected as well (unlike the structural attributes, a tag
// cannot be folded into an XPath query).
func New(spec Spec, opts ...Option) (*Locator, error) {
	structural := spec.ID != "" || spec.Name != "" || len(spec.Classes) > 0 ||
		len(spec.Attrs) > 0 || spec.Index != nil

	if spec.XPath != "" && (structural || spec.Tag != "") {
		return nil, schema.NewError(schema.ErrCodeConfig,
			"pass either structural attributes (tag, id, name, classes, attrs, index) or an xpath, not both")
	}
	if spec.XPath == "" && spec.Tag == "" && !structural {
		return nil, schema.NewError(schema.ErrCodeConfig,
			"pass at least one structural attribute or an xpath")
	}
	if spec.Index != nil && *spec.Index < 0 {
		return nil, schema.NewErrorf(schema.ErrCodeConfig, "index must be non-negative, got %d", *spec.Index)
	}

	l := &Locator{
		spec:     spec,
		timeout:  DefaultWaitTimeout,
		interval: DefaultPollInterval,
	}
	if spec.XPath == "" {
		l.selector = buildCSSSelector(spec)
	}

	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// MustNew is like New but panics on an invalid spec. For package-level
// locator variables in integrator code.
func MustNew(spec Spec, opts ...Option) *Locator {
	l, err := New(spec, opts...)
	if err != nil {
		panic(err)
	}
	return l
}

// Query returns the mechanism and value handed to the Finder.
func (l *Locator) Query() (By, string) {
	if l.spec.XPath != "" {
		return ByXPath, l.spec.XPath
	}
	return ByCSS, l.selector
}

// String describes the locator for logs and error messages.
func (l *Locator) String() string {
	by, value := l.Query()
	return fmt.Sprintf("%s(%s)", by, value)
}

// Resolve polls the finder until the description matches exactly one live
// element, then returns its handle.
//
// Without an index, the match must be unique: more than one match fails
// immediately with ELEMENT_NOT_UNIQUE. With an index, Resolve waits until
// enough matches are present and returns the indexed one. An XPath locator
// returns the first match. When the wait timeout elapses before a match,
// Resolve fails with ELEMENT_NOT_FOUND.
func (l *Locator) Resolve(ctx context.Context, finder Finder) (Handle, error) {
	return l.poll(ctx, finder, func(ctx context.Context, h Handle) (bool, error) {
		return true, nil
	})
}

// ResolveVisible is Resolve with an extra requirement: the matched element
// must also report itself displayed. A present-but-hidden element keeps the
// poll going until the wait timeout.
func (l *Locator) ResolveVisible(ctx context.Context, finder Finder) (Handle, error) {
	return l.poll(ctx, finder, func(ctx context.Context, h Handle) (bool, error) {
		return h.Displayed(ctx)
	})
}

// Check is a single-shot Resolve: one FindAll, no waiting. An absent element
// fails immediately with ELEMENT_NOT_FOUND. Conditions use it, since the
// engine already supplies the re-evaluation loop.
func (l *Locator) Check(ctx context.Context, finder Finder) (Handle, error) {
	handles, err := l.findAll(ctx, finder)
	if err != nil {
		return nil, err
	}

	h, err := l.pick(handles)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, schema.NewErrorf(schema.ErrCodeElementNotFound,
			"no element matched %s", l.String())
	}
	return h, nil
}

// poll repeats findAll+pick until a match passes accept, the wait timeout
// elapses, or the context is cancelled.
func (l *Locator) poll(ctx context.Context, finder Finder, accept func(context.Context, Handle) (bool, error)) (Handle, error) {
	deadline := time.Now().Add(l.timeout)
	for {
		handles, err := l.findAll(ctx, finder)
		if err != nil {
			return nil, err
		}

		h, err := l.pick(handles)
		if err != nil {
			return nil, err
		}
		if h != nil {
			ok, err := accept(ctx, h)
			if err != nil {
				return nil, schema.NewErrorf(schema.ErrCodeExecution,
					"inspect %s: %s", l.String(), err.Error()).WithCause(err)
			}
			if ok {
				return h, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, schema.NewErrorf(schema.ErrCodeElementNotFound,
				"no element matched %s within %s", l.String(), l.timeout)
		}

		select {
		case <-ctx.Done():
			return nil, schema.NewErrorf(schema.ErrCodeCancelled,
				"element wait cancelled: %s", ctx.Err().Error()).WithCause(ctx.Err())
		case <-time.After(l.interval):
		}
	}
}

func (l *Locator) findAll(ctx context.Context, finder Finder) ([]Handle, error) {
	by, value := l.Query()
	handles, err := finder.FindAll(ctx, by, value)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"find %s: %s", l.String(), err.Error()).WithCause(err)
	}
	return handles, nil
}

// pick applies the selection rules to one FindAll batch. A nil handle with a
// nil error means "no match yet"; ELEMENT_NOT_UNIQUE is terminal.
func (l *Locator) pick(handles []Handle) (Handle, error) {
	switch {
	case l.spec.XPath != "":
		if len(handles) > 0 {
			return handles[0], nil
		}

	case l.spec.Index != nil:
		if len(handles) > *l.spec.Index {
			return handles[*l.spec.Index], nil
		}

	case len(handles) == 1:
		return handles[0], nil

	case len(handles) > 1:
		return nil, schema.NewErrorf(schema.ErrCodeElementNotUnique,
			"%d elements match %s and no index was given", len(handles), l.String())
	}
	return nil, nil
}

// buildCSSSelector assembles a CSS selector from structural attributes.
// Attribute keys are emitted in sorted order so the selector is stable.
func buildCSSSelector(spec Spec) string {
	var b strings.Builder

	b.WriteString(spec.Tag)
	if spec.ID != "" {
		fmt.Fprintf(&b, "#%s", spec.ID)
	}
	for _, class := range spec.Classes {
		fmt.Fprintf(&b, ".%s", class)
	}
	if spec.Name != "" {
		fmt.Fprintf(&b, "[name=%q]", spec.Name)
	}

	keys := make([]string, 0, len(spec.Attrs))
	for k := range spec.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "[%s=%q]", k, spec.Attrs[k])
	}

	return b.String()
}
