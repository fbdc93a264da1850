package actions

import (
	"context"

	"github.com/actiongraph/actiongraph/pkg/element"
	"github.com/actiongraph/actiongraph/pkg/graph"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Navigate returns an action that loads the given URL.
func Navigate(url string) func(ctx context.Context, session graph.Session) error {
	return func(ctx context.Context, session graph.Session) error {
		drv, err := driverFrom(session)
		if err != nil {
			return err
		}
		return drv.Navigate(ctx, url)
	}
}

// Click returns an action that resolves the locator and clicks the element.
func Click(l *element.Locator) func(ctx context.Context, session graph.Session) error {
	return func(ctx context.Context, session graph.Session) error {
		h, err := resolve(ctx, session, l)
		if err != nil {
			return err
		}
		return h.Click(ctx)
	}
}

// SendKeys returns an action that types text into the located element.
func SendKeys(l *element.Locator, text string) func(ctx context.Context, session graph.Session) error {
	return func(ctx context.Context, session graph.Session) error {
		h, err := resolve(ctx, session, l)
		if err != nil {
			return err
		}
		return h.SendKeys(ctx, text)
	}
}

// SendKeysFrom is like SendKeys but reads the text from a state key at run
// time, so the value can be produced by earlier steps.
func SendKeysFrom(l *element.Locator, key string) func(ctx context.Context, session graph.Session, state *graph.State) error {
	return func(ctx context.Context, session graph.Session, state *graph.State) error {
		h, err := resolve(ctx, session, l)
		if err != nil {
			return err
		}
		text, _ := state.Value(key).(string)
		return h.SendKeys(ctx, text)
	}
}

// WaitVisible returns an action that blocks until the located element is
// present and displayed, up to the locator's wait timeout. A present but
// hidden element keeps the wait going.
func WaitVisible(l *element.Locator) func(ctx context.Context, session graph.Session) error {
	return func(ctx context.Context, session graph.Session) error {
		drv, err := driverFrom(session)
		if err != nil {
			return err
		}
		_, err = l.ResolveVisible(ctx, drv)
		return err
	}
}

// SaveText returns an action that stores the located element's text under
// the given state key.
func SaveText(l *element.Locator, key string) func(ctx context.Context, session graph.Session, state *graph.State) error {
	return func(ctx context.Context, session graph.Session, state *graph.State) error {
		h, err := resolve(ctx, session, l)
		if err != nil {
			return err
		}
		text, err := h.Text(ctx)
		if err != nil {
			return err
		}
		state.Set(key, text)
		return nil
	}
}

// SetValue returns an action that writes a fixed value into the run state.
func SetValue(key string, value any) func(ctx context.Context, state *graph.State) error {
	return func(ctx context.Context, state *graph.State) error {
		state.Set(key, value)
		return nil
	}
}

// Displayed returns a condition that is true when the located element is
// present and reports itself as visible. Conditions never wait: the engine
// re-evaluates them on every tick, so a single probe suffices. An absent or
// ambiguous element makes the condition false rather than failing the run.
func Displayed(l *element.Locator) func(ctx context.Context, session graph.Session) (bool, error) {
	return func(ctx context.Context, session graph.Session) (bool, error) {
		drv, err := driverFrom(session)
		if err != nil {
			return false, err
		}
		return visible(ctx, drv, l)
	}
}

// Exists returns a condition that is true when the locator matches an
// element, visible or not.
func Exists(l *element.Locator) func(ctx context.Context, session graph.Session) (bool, error) {
	return func(ctx context.Context, session graph.Session) (bool, error) {
		drv, err := driverFrom(session)
		if err != nil {
			return false, err
		}
		if _, err := l.Check(ctx, drv); err != nil {
			switch schema.CodeOf(err) {
			case schema.ErrCodeElementNotFound, schema.ErrCodeElementNotUnique:
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
}

// AnyVisible returns a condition that is true when at least one of the
// locators matches a visible element.
func AnyVisible(locators ...*element.Locator) func(ctx context.Context, session graph.Session) (bool, error) {
	return func(ctx context.Context, session graph.Session) (bool, error) {
		drv, err := driverFrom(session)
		if err != nil {
			return false, err
		}
		for _, l := range locators {
			ok, err := visible(ctx, drv, l)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// AllVisible returns a condition that is true when every locator matches a
// visible element. With no locators it is vacuously true.
func AllVisible(locators ...*element.Locator) func(ctx context.Context, session graph.Session) (bool, error) {
	return func(ctx context.Context, session graph.Session) (bool, error) {
		drv, err := driverFrom(session)
		if err != nil {
			return false, err
		}
		for _, l := range locators {
			ok, err := visible(ctx, drv, l)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
}

// visible probes once for the element and its displayed flag. Absent and
// ambiguous both read as not visible; other failures propagate.
func visible(ctx context.Context, drv Driver, l *element.Locator) (bool, error) {
	h, err := l.Check(ctx, drv)
	if err != nil {
		switch schema.CodeOf(err) {
		case schema.ErrCodeElementNotFound, schema.ErrCodeElementNotUnique:
			return false, nil
		}
		return false, err
	}
	return h.Displayed(ctx)
}

// StateKeySet returns a condition that is true when the key is present in
// the run state.
func StateKeySet(key string) func(ctx context.Context, state *graph.State) (bool, error) {
	return func(ctx context.Context, state *graph.State) (bool, error) {
		return state.Has(key), nil
	}
}

func resolve(ctx context.Context, session graph.Session, l *element.Locator) (element.Handle, error) {
	drv, err := driverFrom(session)
	if err != nil {
		return nil, err
	}
	return l.Resolve(ctx, drv)
}
