package actions

import (
	"time"

	"github.com/actiongraph/actiongraph/pkg/element"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// DefaultRegistry returns a registry pre-populated with the built-in
// browser actions, keyed by the names graph definitions use.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Registration of built-ins cannot conflict on a fresh registry.
	_ = r.RegisterFunc("navigate", "load a URL in the session", buildNavigate)
	_ = r.RegisterFunc("click", "click the located element", buildClick)
	_ = r.RegisterFunc("send_keys", "type text into the located element", buildSendKeys)
	_ = r.RegisterFunc("wait_visible", "wait until the located element is present", buildWaitVisible)
	_ = r.RegisterFunc("save_text", "store the located element's text in state", buildSaveText)
	_ = r.RegisterFunc("set_value", "write a fixed value into state", buildSetValue)

	return r
}

func buildNavigate(params map[string]any) (any, error) {
	url, err := stringParam(params, "url")
	if err != nil {
		return nil, err
	}
	return Navigate(url), nil
}

func buildClick(params map[string]any) (any, error) {
	l, err := locatorFromParams(params)
	if err != nil {
		return nil, err
	}
	return Click(l), nil
}

func buildSendKeys(params map[string]any) (any, error) {
	l, err := locatorFromParams(params)
	if err != nil {
		return nil, err
	}
	if key, ok := params["from_state"].(string); ok && key != "" {
		return SendKeysFrom(l, key), nil
	}
	text, err := stringParam(params, "text")
	if err != nil {
		return nil, err
	}
	return SendKeys(l, text), nil
}

func buildWaitVisible(params map[string]any) (any, error) {
	l, err := locatorFromParams(params)
	if err != nil {
		return nil, err
	}
	return WaitVisible(l), nil
}

func buildSaveText(params map[string]any) (any, error) {
	l, err := locatorFromParams(params)
	if err != nil {
		return nil, err
	}
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	return SaveText(l, key), nil
}

func buildSetValue(params map[string]any) (any, error) {
	key, err := stringParam(params, "key")
	if err != nil {
		return nil, err
	}
	value, ok := params["value"]
	if !ok {
		return nil, schema.NewError(schema.ErrCodeConfig, `missing required parameter "value"`)
	}
	return SetValue(key, value), nil
}

// locatorFromParams builds an element locator from the flat parameter map
// of a definition action. Recognized keys: xpath, tag, id, name, classes,
// attrs, index, wait_timeout_ms.
func locatorFromParams(params map[string]any) (*element.Locator, error) {
	spec := element.Spec{}
	spec.XPath, _ = params["xpath"].(string)
	spec.Tag, _ = params["tag"].(string)
	spec.ID, _ = params["id"].(string)
	spec.Name, _ = params["name"].(string)

	if raw, ok := params["classes"].([]any); ok {
		for _, c := range raw {
			s, ok := c.(string)
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeConfig, "class entries must be strings, got %T", c)
			}
			spec.Classes = append(spec.Classes, s)
		}
	}

	if raw, ok := params["attrs"].(map[string]any); ok {
		spec.Attrs = make(map[string]string, len(raw))
		for k, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeConfig, "attr %q must be a string, got %T", k, v)
			}
			spec.Attrs[k] = s
		}
	}

	if raw, ok := params["index"]; ok {
		idx, err := intValue(raw)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeConfig, "index: %s", err.Error())
		}
		spec.Index = &idx
	}

	var opts []element.Option
	if raw, ok := params["wait_timeout_ms"]; ok {
		ms, err := intValue(raw)
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeConfig, "wait_timeout_ms: %s", err.Error())
		}
		opts = append(opts, element.WithWaitTimeout(time.Duration(ms)*time.Millisecond))
	}

	return element.New(spec, opts...)
}

func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key].(string)
	if !ok || v == "" {
		return "", schema.NewErrorf(schema.ErrCodeConfig, "missing required parameter %q", key)
	}
	return v, nil
}

// intValue accepts the numeric types JSON and YAML decoders produce.
func intValue(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, schema.NewErrorf(schema.ErrCodeValidation, "expected an integer, got %T", v)
	}
}
