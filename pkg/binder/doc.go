// Package binder fills request structs from HTTP requests.
//
// Each binder reads one source and one struct tag: Query uses `query`,
// Form uses `form`, Path uses `path` (chi URL parameters), JSON decodes the
// body and Signals reads DataStar signals. Fields without the binder's tag
// are left untouched, so several binders can be chained on one struct.
//
// Binders return ErrBinderNotApplicable when the request does not carry
// their source, which handler.Wrap treats as "skip".
package binder
