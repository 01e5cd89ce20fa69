package rbac

import "context"

// Identity is the verified caller attached to a request by the auth middleware.
// Services take it as an explicit argument instead of reading request state.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (i Identity) IsZero() bool { return i.UserID == "" }

// Can checks the identity's role against the default policy.
func (i Identity) Can(perm string) bool {
	return i.UserID != "" && defaultPolicy.Allows(i.Role, perm)
}

type ctxKey struct{}

var ctxKeyIdentity = ctxKey{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKeyIdentity).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
