package routes

import "net/http"

// Group nests routes under a shared prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	walk(groups, func(pattern string, route Route) {
		mux.HandleFunc(pattern, route.Handler)
	})
}

// Patterns returns the fully qualified "METHOD /path" pattern of every
// route in registration order.
func Patterns(groups ...Group) []string {
	var out []string
	walk(groups, func(pattern string, _ Route) {
		out = append(out, pattern)
	})
	return out
}

func walk(groups []Group, fn func(string, Route)) {
	for _, g := range groups {
		walkGroup("", g, fn)
	}
}

func walkGroup(parent string, g Group, fn func(string, Route)) {
	prefix := parent + g.Prefix
	for _, route := range g.Routes {
		fn(route.Method+" "+prefix+route.Pattern, route)
	}
	for _, child := range g.Children {
		walkGroup(prefix, child, fn)
	}
}
