package session

import "strings"

// Routes.
const (
	RouteLogin     = "/login"
	RouteHome      = "/"
	RouteMaterials = "/materials"
	RouteImport    = "/import"
	RouteExcel     = "/excelOperations"
	RouteSettings  = "/settings"
)

// Decision is the outcome of a route check.
type Decision struct {
	Allow    bool
	Redirect string
}

// Guard decides whether path may be shown. The login page is always
// reachable, known pages need a session and anything else goes home.
func (s *Session) Guard(path string) Decision {
	path = normalize(path)

	if path == RouteLogin {
		return Decision{Allow: true}
	}
	if !protected(path) {
		return Decision{Redirect: RouteHome}
	}
	if !s.Authenticated() {
		return Decision{Redirect: RouteLogin}
	}
	return Decision{Allow: true}
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return RouteHome
	}
	return path
}

func protected(path string) bool {
	switch path {
	case RouteHome, RouteMaterials, RouteImport, RouteExcel, RouteSettings:
		return true
	}
	id, ok := strings.CutPrefix(path, RouteMaterials+"/")
	return ok && id != "" && !strings.Contains(id, "/")
}
