package analytics

type scopeKind int

const (
	scopeSitewide scopeKind = iota
	scopeUpload
	scopeUser
)

// Scope restricts a metrics query to one entity: the whole site, a single
// upload, or everything a single user owns. The zero value is sitewide.
type Scope struct {
	kind     scopeKind
	uploadID uint
	userID   uint
}

// Sitewide returns the unfiltered scope.
func Sitewide() Scope { return Scope{} }

// ForUpload scopes metrics to a single upload.
func ForUpload(id uint) Scope { return Scope{kind: scopeUpload, uploadID: id} }

// ForUser scopes metrics to every upload owned by one user.
func ForUser(id uint) Scope { return Scope{kind: scopeUser, userID: id} }

// IsSitewide reports whether no entity filter applies. Registrations are
// only meaningful sitewide; scoped points pin UsersRegistered to 0.
func (s Scope) IsSitewide() bool { return s.kind == scopeSitewide }
