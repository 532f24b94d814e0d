package hirewire

import (
	"maps"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-router"
	"github.com/hirewire/hirewire/middleware/csrf"
)

var TemplateUserKey = "current_user"

func init() {
	// CSRF helpers resolve per request. The pongo2 engine calls these lazily,
	// picking up the request-scoped token map that MergeTemplateData injects.
	csrf.SetTemplateHelperFactory(func(name, fallback string) any {
		return func(execCtx *pongo2.ExecutionContext) string {
			if execCtx == nil || execCtx.Public == nil {
				return fallback
			}
			raw, ok := execCtx.Public[csrf.DefaultTemplateHelpersKey]
			if !ok {
				return fallback
			}
			helpers, ok := raw.(map[string]any)
			if !ok {
				return fallback
			}
			if value, ok := helpers[name].(string); ok {
				return value
			}
			return fallback
		}
	})
}

// TemplateHelpers returns a map of helper functions and data that can be used
// as global template data for authentication-aware rendering.
//
// In templates:
//
//	{% if current_user %}
//	{% if current_user|has_role:"admin" %}
//	{{ csrf_field }}
func TemplateHelpers() map[string]any {
	helpers := map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_at_least":      isAtLeast,
		"can_read":         canRead,
		"can_edit":         canEdit,
		"can_create":       canCreate,
		"can_delete":       canDelete,
		"can_access":       canAccess,

		"roles": map[string]string{
			"guest":  string(RoleGuest),
			"member": string(RoleMember),
			"admin":  string(RoleAdmin),
			"owner":  string(RoleOwner),
		},

		"job_types": JobTypes(),
	}

	maps.Copy(helpers, csrf.CSRFTemplateHelpers())

	return helpers
}

// TemplateHelpersWithUser returns template helpers with the given user bound
// as current_user, for rendering outside a router context.
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with user data extracted
// from router context, plus CSRF token helpers when a token is available.
func TemplateHelpersWithRouter(ctx router.Context, userKey string) map[string]any {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	helpers := TemplateHelpers()

	if user := ctx.Locals(userKey); user != nil {
		helpers[TemplateUserKey] = user
	}

	for key, value := range csrf.CSRFTemplateHelpersWithRouter(ctx, csrf.DefaultContextKey) {
		helpers[key] = value
	}

	return helpers
}

// MergeTemplateData merges request-scoped globals (current user, csrf, role
// helpers) into view data. View data wins on key collisions.
func MergeTemplateData(ctx router.Context, data router.ViewContext) router.ViewContext {
	merged := router.ViewContext{}

	for key, value := range TemplateHelpersWithRouter(ctx, TemplateUserKey) {
		merged[key] = value
	}

	if session := CurrentSession(ctx); session != nil {
		merged["session"] = session
	}

	for key, value := range data {
		merged[key] = value
	}

	return merged
}

// GetTemplateUser extracts user data from router context for template usage.
func GetTemplateUser(ctx router.Context, userKey string) (any, bool) {
	if userKey == "" {
		userKey = TemplateUserKey
	}

	user := ctx.Locals(userKey)
	return user, user != nil
}

// isAuthenticated reports whether a signed-in user is bound. Handles
// the shapes a template may receive: model, claims, or decoded JSON.
func isAuthenticated(user any) bool {
	switch u := user.(type) {
	case *User:
		return u != nil
	case User:
		return true
	case AuthClaims:
		return u != nil && u.UserID() != ""
	case map[string]any:
		return len(u) > 0
	default:
		return false
	}
}

// hasRole checks if the user carries the exact role. Claims answer
// through their own HasRole so resource grants are honored.
func hasRole(user any, role string) bool {
	if claims, ok := user.(AuthClaims); ok {
		return claims != nil && claims.HasRole(role)
	}

	r := roleOf(user)
	return r != "" && r == UserRole(role)
}

// isAtLeast checks the user's role against the hierarchy floor.
func isAtLeast(user any, minRole string) bool {
	if claims, ok := user.(AuthClaims); ok {
		return claims != nil && claims.IsAtLeast(minRole)
	}

	return roleOf(user).IsAtLeast(UserRole(minRole))
}

func canRead(user any) bool { return roleOf(user).CanRead() }

func canEdit(user any) bool { return roleOf(user).CanEdit() }

func canCreate(user any) bool { return roleOf(user).CanCreate() }

func canDelete(user any) bool { return roleOf(user).CanDelete() }

// canAccess checks if a user can perform an action: read, edit, create, delete
func canAccess(user any, action string) bool {
	role := roleOf(user)

	switch action {
	case "read":
		return role.CanRead()
	case "edit":
		return role.CanEdit()
	case "create":
		return role.CanCreate()
	case "delete":
		return role.CanDelete()
	default:
		return false
	}
}

// roleOf extracts the global role from any of the supported user shapes.
func roleOf(user any) UserRole {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return ""
		}
		return u.Role
	case User:
		return u.Role
	case AuthClaims:
		if u == nil {
			return ""
		}
		return UserRole(u.Role())
	case map[string]any:
		return mapUserRole(u)
	default:
		return ""
	}
}

// mapUserRole reads the role out of a JSON-decoded user object.
func mapUserRole(u map[string]any) UserRole {
	role, _ := u["user_role"].(string)
	return UserRole(role)
}
