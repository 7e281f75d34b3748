package controllers

import (
	"context"
	"html"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/ports"
	"github.com/marcochiesi/editorial-access-manager/modules/access/domain/types"
	"github.com/marcochiesi/editorial-access-manager/modules/access/services"
	"github.com/marcochiesi/editorial-access-manager/pkg/capability"
	"github.com/marcochiesi/editorial-access-manager/pkg/httperr"
)

type ActorGetter func(ctx context.Context) (userID int64, ok bool)

type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, code string, message string)

type NonceIssuer interface {
	Create(action string, userID int64) string
}

// AccessFormController serves the per-item access box and accepts its
// submissions.
type AccessFormController struct {
	Actor      ActorGetter
	ItemID     func(r *http.Request) string
	Items      ports.ItemStore
	Policies   ports.PolicyReader
	Directory  ports.Directory
	Roles      ports.RoleResolver
	Checker    ports.CapabilityChecker
	Nonces     NonceIssuer
	Writer     *services.PolicyWriter
	Logger     *slog.Logger
	WriteError ErrorWriter
}

var roleLabel = cases.Title(language.Und, cases.NoLower)

func (c AccessFormController) HandleShow(w http.ResponseWriter, r *http.Request) {
	actorID, itemID, err := c.requestTarget(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	_, found, err := c.Items.GetItem(r.Context(), itemID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if !found {
		c.fail(w, r, httperr.NewNotFound("item not found"))
		return
	}
	can, err := c.Checker.UserCan(r.Context(), actorID, capability.EditPost, itemID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if !can {
		c.fail(w, r, httperr.NewForbidden("forbidden"))
		return
	}

	body, err := c.Render(r.Context(), itemID, actorID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (c AccessFormController) HandleSave(w http.ResponseWriter, r *http.Request) {
	actorID, itemID, err := c.requestTarget(r)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		c.fail(w, r, httperr.NewBadRequest("invalid form"))
		return
	}

	outcome, err := c.Writer.Save(r.Context(), services.SaveRequest{
		ItemID:   itemID,
		ActorID:  actorID,
		Autosave: r.PostForm.Get(types.FieldAutosave) != "",
		Nonce:    r.PostForm.Get(types.FieldNonce),
		Enable:   r.PostForm.Get(types.FieldEnable),
		Roles:    r.PostForm[types.FieldAllowedRoles],
		Users:    r.PostForm[types.FieldAllowedUsers],
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.logger().Info("access policy save", "item_id", itemID, "actor_id", actorID, "outcome", string(outcome))

	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

// Render returns the access box markup for itemID as seen by actorID.
func (c AccessFormController) Render(ctx context.Context, itemID int64, actorID int64) (string, error) {
	policy, err := c.Policies.GetPolicy(ctx, itemID)
	if err != nil {
		return "", err
	}
	roles, err := c.Directory.EditableRoles(ctx)
	if err != nil {
		return "", err
	}
	users, err := c.Directory.ListUsers(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(`<form method="post" class="eam-access-box">`)
	b.WriteString(`<input type="hidden" name="` + types.FieldNonce + `" value="` + html.EscapeString(c.Nonces.Create(types.NonceAction, actorID)) + `">`)

	b.WriteString(`<div><input`)
	if policy.Enabled {
		b.WriteString(` checked`)
	}
	b.WriteString(` type="checkbox" name="` + types.FieldEnable + `" id="` + types.FieldEnable + `" value="1"> Enable custom access management</div>`)

	b.WriteString(`<div id="eam_custom_access_controls">`)
	b.WriteString(`<label for="eam_allowed_roles">Manage access for roles:</label>`)
	b.WriteString(`<select multiple name="` + types.FieldAllowedRoles + `" id="eam_allowed_roles">`)
	for _, role := range roles {
		b.WriteString(`<option value="` + html.EscapeString(role) + `"`)
		switch {
		case role == types.RoleAdministrator:
			b.WriteString(` selected disabled`)
		case slices.Contains(policy.AllowedRoles, role):
			b.WriteString(` selected`)
		}
		b.WriteString(`>` + html.EscapeString(roleLabel.String(role)) + `</option>`)
	}
	b.WriteString(`</select>`)

	b.WriteString(`<label for="eam_allowed_users">Manage access for users:</label>`)
	b.WriteString(`<select multiple name="` + types.FieldAllowedUsers + `" id="eam_allowed_users">`)
	for _, u := range users {
		userRoles, err := c.Roles.ResolveRoles(ctx, u.ID)
		if err != nil {
			return "", err
		}
		b.WriteString(`<option value="` + strconv.FormatInt(u.ID, 10) + `"`)
		switch {
		case slices.Contains(userRoles, types.RoleAdministrator):
			b.WriteString(` selected disabled`)
		case slices.Contains(policy.AllowedUsers, u.ID):
			b.WriteString(` selected`)
		}
		b.WriteString(`>` + html.EscapeString(u.Login) + `</option>`)
	}
	b.WriteString(`</select>`)
	b.WriteString(`</div>`)
	b.WriteString(`<button type="submit">Save</button>`)
	b.WriteString(`</form>`)
	return b.String(), nil
}

func (c AccessFormController) requestTarget(r *http.Request) (actorID int64, itemID int64, err error) {
	actorID, ok := c.Actor(r.Context())
	if !ok {
		return 0, 0, httperr.NewUnauthorized("actor required")
	}
	itemID, err = strconv.ParseInt(strings.TrimSpace(c.ItemID(r)), 10, 64)
	if err != nil || itemID <= 0 {
		return 0, 0, httperr.NewBadRequest("invalid item id")
	}
	return actorID, itemID, nil
}

func (c AccessFormController) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := httperr.StatusCode(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		c.logger().Error("access form", "path", r.URL.Path, "method", r.Method, "err", err)
		msg = "internal error"
	}
	if c.WriteError == nil {
		http.Error(w, msg, status)
		return
	}
	c.WriteError(w, r, status, httperr.CodeOf(err), msg)
}

func (c AccessFormController) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
