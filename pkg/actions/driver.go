// Package actions provides prebuilt browser actions and conditions for use
// in workflow steps, plus a registry of named action factories so graphs
// loaded from definitions can refer to actions by name.
//
// Prebuilt callables expect the run's session to implement Driver. The
// graph engine never inspects the session; only the callables here do.
package actions

import (
	"context"

	"github.com/actiongraph/actiongraph/pkg/element"
	"github.com/actiongraph/actiongraph/pkg/graph"
	"github.com/actiongraph/actiongraph/pkg/schema"
)

// Driver is the boundary a browser automation session must implement to be
// usable with the prebuilt actions. It extends element.Finder with page
// level navigation.
type Driver interface {
	element.Finder

	Navigate(ctx context.Context, url string) error
}

// driverFrom asserts the opaque session into a Driver.
func driverFrom(session graph.Session) (Driver, error) {
	drv, ok := session.(Driver)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeExecution,
			"session of type %T does not implement actions.Driver", session)
	}
	return drv, nil
}
