package account

import (
	"encoding/json"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/modules/account/views"
	"github.com/dmitrymomot/authstarter/pkg/environment"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

const shortIDLength = 20

// ShortSessionID keeps the first 20 characters of id followed by "...".
func ShortSessionID(id string) string {
	if len(id) > shortIDLength {
		id = id[:shortIDLength]
	}
	return id + "..."
}

func (m *Module) home(ctx handler.Context, _ struct{}) handler.Response {
	sess, err := m.client.GetSession(ctx, ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		return handler.Error(err)
	}

	d := views.HomeData{Session: sess}
	if sess != nil {
		d.IsAdmin = m.client.IsAdmin(ctx)
		if environment.IsDevelopment(ctx) {
			if raw, err := json.MarshalIndent(sess, "", "  "); err == nil {
				d.Debug = string(raw)
			}
		}
	}
	return handler.Templ(views.HomePage(d))
}

func (m *Module) dashboard(ctx handler.Context, _ struct{}) handler.Response {
	sess, err := m.client.GetSession(ctx, ctx.ResponseWriter(), ctx.Request())
	if err != nil {
		return handler.Error(err)
	}
	if sess == nil {
		return handler.Redirect(signInPath)
	}
	return handler.Templ(views.DashboardPage(views.DashboardData{
		Session: sess,
		ShortID: ShortSessionID(sess.Session.ID.String()),
	}))
}

// signOut always lands on the sign-in page; a failed revocation is only
// logged.
func (m *Module) signOut(ctx handler.Context, _ struct{}) handler.Response {
	if _, err := m.client.SignOut(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		m.log.WarnContext(ctx, "sign out failed", logger.Error(err), logger.Component("account"))
	}
	return handler.Redirect(signInPath)
}
