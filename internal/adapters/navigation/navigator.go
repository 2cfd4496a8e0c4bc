package navigation

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bnema/winspay-gate/internal/domain"
	"github.com/bnema/winspay-gate/internal/ports"
)

var (
	_ ports.Navigator = (*WriterNavigator)(nil)
	_ ports.Navigator = (*Recorder)(nil)
	_ ports.Navigator = Fanout(nil)
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// WriterNavigator prints each navigation as a line, either
// "route -> path" or a JSON object.
type WriterNavigator struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
}

func NewWriterNavigator(out io.Writer, format Format) *WriterNavigator {
	if format != FormatJSON {
		format = FormatText
	}

	return &WriterNavigator{out: out, format: format}
}

type routeLine struct {
	Route string `json:"route"`
	Path  string `json:"path"`
}

func (n *WriterNavigator) Navigate(route domain.Route) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.format == FormatJSON {
		_ = json.NewEncoder(n.out).Encode(routeLine{Route: string(route), Path: route.Path()})
		return
	}

	_, _ = fmt.Fprintf(n.out, "%s -> %s\n", route.Label(), route.Path())
}

// Recorder keeps every route it is asked to navigate to.
type Recorder struct {
	mu     sync.Mutex
	routes []domain.Route
}

func (r *Recorder) Navigate(route domain.Route) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.routes = append(r.routes, route)
}

func (r *Recorder) Routes() []domain.Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]domain.Route(nil), r.routes...)
}

// Last returns the most recent route, or RouteNone.
func (r *Recorder) Last() domain.Route {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.routes) == 0 {
		return domain.RouteNone
	}

	return r.routes[len(r.routes)-1]
}

// Fanout forwards every navigation to each navigator in order.
type Fanout []ports.Navigator

func (f Fanout) Navigate(route domain.Route) {
	for _, navigator := range f {
		if navigator != nil {
			navigator.Navigate(route)
		}
	}
}
