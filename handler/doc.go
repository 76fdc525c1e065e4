// Package handler provides typed HTTP handlers with pluggable binders,
// decorators and responses that render either full HTML pages or DataStar
// server-sent events, depending on how the request was made.
//
// A handler receives a Context and a bound request value and returns a
// Response:
//
//	type SignInRequest struct {
//		Email    string `form:"email"`
//		Password string `form:"password"`
//	}
//
//	r.Post("/sign-in", handler.Wrap(func(ctx handler.Context, req SignInRequest) handler.Response {
//		if err := auth.SignIn(ctx, req.Email, req.Password); err != nil {
//			return handler.TemplPartial(views.SignInForm(err), views.SignInPage(err), handler.WithTarget("#sign-in-form"))
//		}
//		return handler.Redirect("/")
//	}, handler.WithBinders[handler.Context, SignInRequest](binder.Form())))
//
// Requests sent by DataStar (Accept: text/event-stream) get element patches,
// signal patches or script redirects. Regular requests get HTML or 303
// redirects from the same Response values.
package handler
