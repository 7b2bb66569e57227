package routing

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Router dispatches on exact path + method. Placeholder routes from the
// allowlist are a classifier concern only; every registered handler path
// is literal.
type Router struct {
	classifier *Classifier
	table      map[string]map[string]boundRoute
}

type boundRoute struct {
	rc      RouteClass
	handler http.Handler
}

func NewRouter(classifier *Classifier) *Router {
	return &Router{
		classifier: classifier,
		table:      make(map[string]map[string]boundRoute),
	}
}

func (r *Router) Handle(rc RouteClass, method string, path string, h http.Handler) {
	byMethod := r.table[path]
	if byMethod == nil {
		byMethod = make(map[string]boundRoute)
		r.table[path] = byMethod
	}
	byMethod[method] = boundRoute{rc: rc, handler: h}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	byMethod, ok := r.table[req.URL.Path]
	if !ok {
		WriteError(w, req, r.classifier.Classify(req.URL.Path), http.StatusNotFound, "not_found", "not found")
		return
	}
	bound, ok := byMethod[req.Method]
	if !ok {
		rc := r.classifier.Classify(req.URL.Path)
		for _, b := range byMethod {
			rc = b.rc
			break
		}
		WriteError(w, req, rc, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("routing: panic serving %s %s: %v\n%s", req.Method, req.URL.Path, rec, debug.Stack())
			WriteError(w, req, bound.rc, http.StatusInternalServerError, "internal_error", "internal error")
		}
	}()
	bound.handler.ServeHTTP(w, req)
}
